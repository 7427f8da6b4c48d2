package advisor

import (
	"context"
	"fmt"

	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/engine"
)

// EngineAdvisor asks a local UCI engine from the pool
type EngineAdvisor struct {
	pool *engine.Pool
}

// NewEngineAdvisor creates an advisor backed by pool
func NewEngineAdvisor(pool *engine.Pool) *EngineAdvisor {
	return &EngineAdvisor{pool: pool}
}

// Advise borrows an engine, searches the position and returns it to the pool
func (a *EngineAdvisor) Advise(ctx context.Context, req Request) (Advice, error) {
	eng, err := a.pool.GetEngine(ctx)
	if err != nil {
		return Advice{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer a.pool.ReturnEngine(eng)

	analysis, err := eng.Analyze(ctx, req.FEN, req.Depth, req.ThinkingTime)
	if err != nil {
		return Advice{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	spec, err := board.ParseUCI(analysis.BestMove)
	if err != nil {
		return Advice{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	advice := Advice{Move: spec}
	if analysis.HasScore {
		var chance float64
		switch {
		case analysis.Mate > 0:
			chance = 100
		case analysis.Mate < 0:
			chance = 0
		default:
			chance = winChance(analysis.ScoreCP)
		}
		if !whiteToMove(req.FEN) {
			chance = 100 - chance
		}
		advice.WinChance = chance
		advice.HasWinChance = true
	}

	return advice, nil
}
