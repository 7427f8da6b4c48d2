// Package engine drives local UCI chess engines used to pick computer moves
// and to evaluate positions.
package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolClosed is returned after Shutdown
var ErrPoolClosed = errors.New("engine pool closed")

// Pool manages multiple chess engines
type Pool struct {
	engines    map[string]*UCIEngine
	available  chan string // IDs of available engines
	maxEngines int         // Maximum number of engine to create
	factory    func() (*UCIEngine, error)
	closed     bool
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewEnginePool creates a new engine pool
func NewEnginePool(enginePath string, maxEngines int, options map[string]string, logger *zap.Logger) *Pool {
	return NewPool(maxEngines, func() (*UCIEngine, error) {
		e, err := NewUCIEngine(enginePath, logger)
		if err != nil {
			return nil, err
		}
		for name, value := range options {
			if err := e.SetOption(name, value); err != nil {
				_ = e.Close()
				return nil, err
			}
		}
		return e, nil
	}, logger)
}

// NewPool creates a pool whose engines are built by factory
func NewPool(maxEngines int, factory func() (*UCIEngine, error), logger *zap.Logger) *Pool {
	if maxEngines < 1 {
		maxEngines = 1
	}

	return &Pool{
		engines:    make(map[string]*UCIEngine),
		available:  make(chan string, maxEngines),
		maxEngines: maxEngines,
		factory:    factory,
		logger:     logger,
	}
}

// Initialize creates the initial pool of engines
func (p *Pool) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.maxEngines; i++ {
		engine, err := p.factory()
		if err != nil {
			return err
		}

		p.engines[engine.ID.String()] = engine
		p.available <- engine.ID.String()
	}

	p.logger.Info("Engine pool initialized", zap.Int("count", len(p.engines)))
	return nil
}

// GetEngine retrieves an available engine, waiting until one is free or ctx is done
func (p *Pool) GetEngine(ctx context.Context) (*UCIEngine, error) {
	select {
	case engineID, ok := <-p.available:
		if !ok {
			return nil, ErrPoolClosed
		}

		p.mu.RLock()
		engine, exists := p.engines[engineID]
		p.mu.RUnlock()

		if !exists {
			return nil, errors.New("invalid engine ID from pool")
		}

		p.logger.Debug("Engine retrieved from pool", zap.String("engine_id", engineID))
		return engine, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReturnEngine returns an engine to the pool
func (p *Pool) ReturnEngine(engine *UCIEngine) {
	engineID := engine.ID.String()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, exists := p.engines[engineID]; !exists || p.closed {
		return
	}

	// Non-blocking send to available channel
	select {
	case p.available <- engineID:
		p.logger.Debug("Engine returned to pool", zap.String("engine_id", engineID))
	default:
		p.logger.Warn("Failed to return engine to pool, channel full",
			zap.String("engine_id", engineID))
	}
}

// Shutdown closes all engines in the pool
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for id, engine := range p.engines {
		if err := engine.Close(); err != nil {
			p.logger.Error("Error closing engine",
				zap.String("engine_id", id),
				zap.Error(err))
		}
	}

	close(p.available)
	p.engines = make(map[string]*UCIEngine)

	p.logger.Info("Engine pool shut down")
}
