package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/repository/sqlite"
	"plateserver/internal/route"
	"plateserver/internal/service"
	"plateserver/internal/service/ai"
	"plateserver/internal/service/engine"
	"plateserver/internal/service/storage"
	"plateserver/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	engine  *engine.Engine
	janitor *storage.Janitor
	hub     *websocket.HubService
	server  *http.Server
}

// NewApp builds every dependency once and wires them together. Model load
// failures abort start-up.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Close()
		return nil, err
	}
	recognitionRepo := sqlite.NewRecognitionRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	store, err := storage.NewStore(cfg, logger)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, err
	}

	eng, err := NewEngine(cfg, store, logger)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, err
	}

	hub := websocket.NewHubService(logger)
	janitor := storage.NewJanitor(store, recognitionRepo, cfg.RetentionMaxAge, cfg.RetentionSchedule, logger)
	manager := service.NewManager(cfg, eng, store, recognitionRepo, detectionRepo, hub, logger)

	router := route.SetupRoutes(manager, cfg, logger, recognitionRepo, eng.PoolSize())

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		engine:  eng,
		janitor: janitor,
		hub:     hub,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          log.New(logger.ErrorWriter(), "http: ", 0),
		},
	}, nil
}

// NewEngine loads cfg.EngineWorkers model sessions and returns the engine
// that hands them out.
func NewEngine(cfg *config.Config, store *storage.Store, logger *logger.Logger) (*engine.Engine, error) {
	pool, err := engine.NewPool(cfg.EngineWorkers, ai.SessionFactory(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return engine.New(pool, store, logger, cfg.InferenceTimeout), nil
}

// Run serves HTTP until SIGINT or SIGTERM, then drains in-flight requests and
// releases the models.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.janitor.Start(); err != nil {
		a.close(true)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Plate Detection-OCR API listening on %s", a.server.Addr)
		a.logger.Info("Uploads: %s, artifacts: %s, sessions: %d",
			a.config.ReceivedDirectory, a.config.ArtifactDirectory, a.engine.PoolSize())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// set before g.Wait returns
	drained := false
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		drained = err == nil
		return err
	})

	err := g.Wait()
	a.janitor.Stop()
	a.close(drained)
	return err
}

// close frees the models only when no handler can still be using them. After
// a shutdown timeout they are left to the process exit.
func (a *App) close(drained bool) {
	if drained {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.engine.Close(ctx); err != nil {
			a.logger.Error("Error releasing models: %v", err)
		}
		cancel()
	} else {
		a.logger.Warning("Requests still running after %s, leaving models loaded", shutdownTimeout)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Info("Stopped")
	a.logger.Close()
}
