// Package advisor queries a move-advisory service for a best move and a win
// probability. Every backend may fail or be slow; callers bound each request
// with a context and treat ErrUnavailable as "feature unavailable".
package advisor

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/tecu23/arena-server/pkg/board"
)

// ErrUnavailable is returned when no advice could be produced
var ErrUnavailable = errors.New("advisory service unavailable")

// Request describes the position to analyse
type Request struct {
	FEN          string
	Depth        int
	ThinkingTime time.Duration
}

// Advice is the service's answer
type Advice struct {
	Move         board.MoveSpec
	SAN          string
	WinChance    float64 // 0..100, from white's point of view
	HasWinChance bool
}

// Advisor is implemented by every backend
type Advisor interface {
	Advise(ctx context.Context, req Request) (Advice, error)
}

// Disabled never gives advice
type Disabled struct{}

// Advise always fails with ErrUnavailable
func (Disabled) Advise(context.Context, Request) (Advice, error) {
	return Advice{}, ErrUnavailable
}

// winChance maps a centipawn score for the side to move onto a 0..100 win
// probability for that side.
func winChance(cp int) float64 {
	return 50 + 50*(2/(1+math.Exp(-0.00368208*float64(cp)))-1)
}

// whiteToMove reads the active color field of a FEN string
func whiteToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) < 2 || fields[1] != "b"
}
