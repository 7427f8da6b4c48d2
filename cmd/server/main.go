// Package main is the entry point of the application
package main

import (
	"context"
	"flag"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/arena-server/internal/auth"
	"github.com/tecu23/arena-server/pkg/advisor"
	"github.com/tecu23/arena-server/pkg/config"
	"github.com/tecu23/arena-server/pkg/engine"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/manager"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/registry"
	"github.com/tecu23/arena-server/pkg/server"
)

// application encapsulates global dependencies
type application struct {
	Auth    *auth.APIKeyAuth
	Logger  *zap.Logger
	Config  config.Config
	Hub     *server.Hub
	Manager *manager.Manager
	Pool    *engine.Pool

	StartTime     time.Time
	GamesFinished atomic.Int64
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port (overrides PORT)")
	flag.Parse()

	// A missing .env is fine; the environment may already be set
	envErr := godotenv.Load()

	cfg, cfgErr := config.Load()
	if *debug {
		cfg.Debug = true
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}
	if cfgErr != nil {
		logger.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	app := newApplication(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go app.Hub.Run(ctx)
	app.Manager.StartSweep(cfg.TimeoutSweepInterval)

	if err := app.serve(cancel); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

// newApplication wires the core and the gateway
func newApplication(cfg config.Config, logger *zap.Logger) *application {
	// Initialize event publisher
	publisher := events.NewPublisher()

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		StartTime: time.Now(),
	}

	publisher.Subscribe(events.EventGameOver, func(events.Event) {
		app.GamesFinished.Add(1)
	})

	var adv advisor.Advisor
	switch cfg.AdvisorBackend {
	case config.AdvisorEngine:
		app.Pool = engine.NewEnginePool(cfg.EnginePath, cfg.EnginePoolSize, nil, logger)
		if err := app.Pool.Initialize(); err != nil {
			logger.Fatal("initialize engine error", zap.Error(err))
		}
		adv = advisor.NewEngineAdvisor(app.Pool)
	case config.AdvisorHTTP:
		adv = advisor.NewHTTPAdvisor(cfg.AdvisorURL, cfg.AdvisorTimeout, logger)
	default:
		adv = advisor.Disabled{}
	}
	logger.Info("advisory backend selected", zap.String("backend", cfg.AdvisorBackend))

	app.Manager = manager.New(
		managerConfig(cfg),
		matchmaking.NewQueue(cfg.DefaultRating),
		registry.New(logger),
		adv,
		publisher,
		logger,
	)
	app.Hub = server.NewHub(app.Manager, publisher, logger)

	return app
}

func managerConfig(cfg config.Config) manager.Config {
	return manager.Config{
		DefaultRating:      cfg.DefaultRating,
		ComputerThinkDelay: cfg.ComputerThinkDelay,
		ComputerDepth:      cfg.ComputerDepth,
		ComputerThinkTime:  cfg.ComputerThinkTime,
		HintDepth:          cfg.HintDepth,
		HintThinkTime:      cfg.HintThinkTime,
		AdvisorTimeout:     cfg.AdvisorTimeout,
		RoomTTLAfterOver:   cfg.RoomTTLAfterOver,
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	app.Manager.Close()

	if app.Pool != nil {
		app.Pool.Shutdown()
	}

	app.Logger.Info("All components shut down successfully")
}
