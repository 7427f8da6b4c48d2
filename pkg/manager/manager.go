// Package manager orchestrates matchmaking, sessions and the computer
// opponent. Every exported method is one step of the single dispatcher: it
// must be called from the dispatcher goroutine only. Work that waits on the
// clock or the advisory service runs elsewhere and re-enters through the
// dispatch function, re-fetching its session by id and generation.
package manager

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/advisor"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/player"
	"github.com/tecu23/arena-server/pkg/registry"
)

var (
	// ErrAlreadyInSession is returned when a player who holds a session that
	// is not over asks for another one
	ErrAlreadyInSession = errors.New("player is already in a session")
	// ErrAlreadyQueued is returned when an identity joins the same queue twice
	ErrAlreadyQueued = errors.New("player is already queued for this mode")
	// ErrNotInRoom is returned when the requesting connection holds no seat in the room
	ErrNotInRoom = errors.New("connection is not seated in this room")
	// ErrMissingIdentity is returned when a request carries no player identity
	ErrMissingIdentity = errors.New("player identity is required")
)

// Config tunes the orchestrator
type Config struct {
	DefaultRating      int
	ComputerThinkDelay time.Duration
	ComputerDepth      int
	ComputerThinkTime  time.Duration
	HintDepth          int
	HintThinkTime      time.Duration
	AdvisorTimeout     time.Duration
	RoomTTLAfterOver   time.Duration
}

// DefaultConfig returns the stock tuning
func DefaultConfig() Config {
	return Config{
		DefaultRating:      player.DefaultRating,
		ComputerThinkDelay: 1300 * time.Millisecond,
		ComputerDepth:      1,
		ComputerThinkTime:  time.Millisecond,
		HintDepth:          18,
		HintThinkTime:      100 * time.Millisecond,
		AdvisorTimeout:     5 * time.Second,
		RoomTTLAfterOver:   10 * time.Minute,
	}
}

// Dispatch hands a task to the dispatcher goroutine
type Dispatch func(task func())

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the real clock
func WithClock(clk clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

// WithDispatch sets how asynchronous results re-enter the dispatcher
func WithDispatch(d Dispatch) Option {
	return func(m *Manager) { m.dispatch = d }
}

// WithCoin replaces the color coin. It returns true when the earlier queue
// entry takes white.
func WithCoin(coin func() bool) Option {
	return func(m *Manager) { m.coin = coin }
}

// WithPicker replaces the random index used for fallback computer moves
func WithPicker(pick func(n int) int) Option {
	return func(m *Manager) { m.pick = pick }
}

// Manager is the orchestrator
type Manager struct {
	cfg       Config
	queue     *matchmaking.Queue
	registry  *registry.Registry
	advisor   advisor.Advisor
	publisher *events.Publisher
	logger    *zap.Logger

	clock    clockwork.Clock
	dispatch Dispatch
	coin     func() bool
	pick     func(n int) int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a manager
func New(
	cfg Config,
	queue *matchmaking.Queue,
	reg *registry.Registry,
	adv advisor.Advisor,
	publisher *events.Publisher,
	logger *zap.Logger,
	opts ...Option,
) *Manager {
	if adv == nil {
		adv = advisor.Disabled{}
	}

	m := &Manager{
		cfg:       cfg,
		queue:     queue,
		registry:  reg,
		advisor:   adv,
		publisher: publisher,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
		dispatch:  func(task func()) { task() },
		coin:      func() bool { return rand.IntN(2) == 0 },
		pick:      rand.IntN,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m
}

// SetDispatch sets the dispatch function after construction
func (m *Manager) SetDispatch(d Dispatch) {
	m.dispatch = d
}

// Close stops background timers
func (m *Manager) Close() {
	m.cancel()
}

// StartSweep polls every active session for an expired clock each interval
// until Close is called.
func (m *Manager) StartSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := m.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				m.dispatch(m.Sweep)
			case <-m.ctx.Done():
				return
			}
		}
	}()
}

// Sweep finalizes every active session whose clock ran out
func (m *Manager) Sweep() {
	for _, s := range m.registry.ListActive() {
		expired, ok := s.CheckTimeout()
		if !ok {
			continue
		}
		o, changed := s.FinishTimeout(expired)
		m.announceOver(s, o, changed)
	}
}

// after runs task on the dispatcher once d has elapsed, unless ctx ends first
func (m *Manager) after(ctx context.Context, d time.Duration, task func()) {
	timer := m.clock.NewTimer(d)
	go func() {
		select {
		case <-timer.Chan():
			m.dispatch(task)
		case <-ctx.Done():
			timer.Stop()
		}
	}()
}

func (m *Manager) publish(t events.EventType, s *game.Session, payload interface{}) {
	m.publishTo(t, s.ID.String(), s.Recipients(), payload)
}

func (m *Manager) publishTo(t events.EventType, roomID string, recipients []uuid.UUID, payload interface{}) {
	if len(recipients) == 0 {
		return
	}

	m.publisher.Publish(events.Event{
		Type:       t,
		RoomID:     roomID,
		Recipients: recipients,
		Payload:    payload,
	})
}

// seatedIn resolves the room and the requester's seat in it
func (m *Manager) seatedIn(connID uuid.UUID, roomID string) (*game.Session, game.Seat, error) {
	s, err := m.registry.Lookup(roomID)
	if err != nil {
		return nil, game.Seat{}, err
	}

	seat, ok := s.SeatByConnection(connID)
	if !ok {
		return nil, game.Seat{}, ErrNotInRoom
	}

	return s, seat, nil
}
