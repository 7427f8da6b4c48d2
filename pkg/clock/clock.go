// Package clock implements a single player's countdown clock
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is one player's countdown timer. The balance only decreases while the
// clock is running; reading it never mutates state.
//
// Besides the balance the clock latches the instant of its first Start and of
// EndGame, which are used to report the total length of a game.
type Clock struct {
	clock clockwork.Clock

	remaining time.Duration
	total     time.Duration

	isRunning bool
	startTime time.Time

	gameStart time.Time
	gameEnd   time.Time

	mutex sync.Mutex
}

// New creates a stopped clock holding total
func New(total time.Duration, clk clockwork.Clock) *Clock {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	return &Clock{
		clock:     clk,
		remaining: total,
		total:     total,
	}
}

// Start starts the clock. Starting a running clock is a no-op.
func (c *Clock) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return
	}

	c.startTime = c.clock.Now()
	c.isRunning = true

	if c.gameStart.IsZero() {
		c.gameStart = c.startTime
	}
}

// Stop stops the clock and charges the time elapsed since the last Start.
// Stopping a stopped clock is a no-op.
func (c *Clock) Stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isRunning {
		return
	}

	c.remaining -= c.clock.Since(c.startTime)
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.isRunning = false
}

// Remaining returns the current balance, never below zero
func (c *Clock) Remaining() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	remaining := c.remaining
	if c.isRunning {
		remaining -= c.clock.Since(c.startTime)
	}

	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

// Expired reports whether the balance has reached zero
func (c *Clock) Expired() bool {
	return c.Remaining() <= 0
}

// Running reports whether the clock is currently counting down
func (c *Clock) Running() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.isRunning
}

// Total returns the initial balance
func (c *Clock) Total() time.Duration {
	return c.total
}

// Reset restores the full balance. A running clock keeps running from the
// full balance; a stopped one also forgets its game start and end markers.
func (c *Clock) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.remaining = c.total
	if c.isRunning {
		c.startTime = c.clock.Now()
		return
	}

	c.startTime = time.Time{}
	c.gameStart = time.Time{}
	c.gameEnd = time.Time{}
}

// EndGame latches the game end instant once per game
func (c *Clock) EndGame() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.gameEnd.IsZero() {
		c.gameEnd = c.clock.Now()
	}
}

// TotalGameDuration is the time between the first Start and EndGame, or zero
// while either marker is unset.
func (c *Clock) TotalGameDuration() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.gameStart.IsZero() || c.gameEnd.IsZero() {
		return 0
	}

	return c.gameEnd.Sub(c.gameStart)
}

// Format renders a duration as "mm:ss.t", prefixed with "h:" past one hour
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	tenths := (ms % 1000) / 100

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", hours, minutes, seconds, tenths)
	}

	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths)
}
