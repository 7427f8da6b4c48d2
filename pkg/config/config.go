// Package config loads the server configuration from the environment
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Advisory backends
const (
	AdvisorHTTP   = "http"
	AdvisorEngine = "engine"
	AdvisorNone   = "none"
)

// Config holds every runtime setting
type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	// Allowed websocket and CORS origins; empty allows any
	FrontendOrigins []string `env:"FRONTEND_ORIGIN" envSeparator:","`
	// Empty disables authentication
	APIKeys []string `env:"API_KEYS" envSeparator:","`

	AdvisorBackend string        `env:"ADVISOR_BACKEND" envDefault:"http"`
	AdvisorURL     string        `env:"ADVISOR_URL" envDefault:"https://chess-api.com/v1"`
	AdvisorTimeout time.Duration `env:"ADVISOR_TIMEOUT" envDefault:"5s"`
	EnginePath     string        `env:"ENGINE_PATH"`
	EnginePoolSize int           `env:"ENGINE_POOL_SIZE" envDefault:"2"`

	ComputerThinkDelay time.Duration `env:"COMPUTER_THINK_DELAY" envDefault:"1300ms"`
	ComputerDepth      int           `env:"COMPUTER_DEPTH" envDefault:"1"`
	ComputerThinkTime  time.Duration `env:"COMPUTER_THINK_TIME" envDefault:"1ms"`
	HintDepth          int           `env:"HINT_DEPTH" envDefault:"18"`
	HintThinkTime      time.Duration `env:"HINT_THINK_TIME" envDefault:"100ms"`

	RoomTTLAfterOver     time.Duration `env:"ROOM_TTL_AFTER_OVER" envDefault:"10m"`
	TimeoutSweepInterval time.Duration `env:"TIMEOUT_SWEEP_INTERVAL" envDefault:"0s"`
	DefaultRating        int           `env:"DEFAULT_RATING" envDefault:"1500"`
}

// Load parses the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks settings that depend on each other
func (c Config) Validate() error {
	switch c.AdvisorBackend {
	case AdvisorHTTP, AdvisorNone:
	case AdvisorEngine:
		if c.EnginePath == "" {
			return errors.New("ENGINE_PATH is required for the engine advisor")
		}
		if c.EnginePoolSize <= 0 {
			return errors.New("ENGINE_POOL_SIZE must be positive")
		}
	default:
		return fmt.Errorf("unknown ADVISOR_BACKEND %q", c.AdvisorBackend)
	}

	if c.AdvisorTimeout <= 0 {
		return errors.New("ADVISOR_TIMEOUT must be positive")
	}

	if c.Port == "" {
		return errors.New("PORT is required")
	}

	return nil
}
