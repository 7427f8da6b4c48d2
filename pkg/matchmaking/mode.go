// Package matchmaking pairs waiting players of the same mode by rating
package matchmaking

import (
	"errors"
	"strings"
	"time"
)

// Mode is a matchmaking pool with its own time control and rating
type Mode string

// Supported modes
const (
	Rapid  Mode = "rapid"
	Blitz  Mode = "blitz"
	Bullet Mode = "bullet"
)

// ErrInvalidMode is returned for a mode name that is not supported
var ErrInvalidMode = errors.New("invalid game mode")

var initialDurations = map[Mode]time.Duration{
	Rapid:  10 * time.Minute,
	Blitz:  3 * time.Minute,
	Bullet: 1 * time.Minute,
}

// Modes lists the supported modes in a stable order
func Modes() []Mode {
	return []Mode{Rapid, Blitz, Bullet}
}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := initialDurations[m]; !ok {
		return "", ErrInvalidMode
	}

	return m, nil
}

// InitialDuration is the fixed clock budget for each player in the mode
func (m Mode) InitialDuration() time.Duration {
	return initialDurations[m]
}

// Valid reports whether m is a supported mode
func (m Mode) Valid() bool {
	_, ok := initialDurations[m]
	return ok
}
