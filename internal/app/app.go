// Package app wires configuration, storage, clients, services and the HTTP
// surface into one runnable unit.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/auth"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/db"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/telemetry"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      config.Config
	Repos    Repos
	Services Services

	clients     Clients
	worker      *JobWorker
	cancel      context.CancelFunc
	stopTracing func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := config.Load(log)
	log.Info("Configuration loaded", "summary", cfg.Describe())

	stopTracing := telemetry.Init(context.Background(), log, telemetry.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	tokens := auth.New(cfg.AuthSecret, cfg.AuthAudience)
	if !tokens.Enabled() {
		log.Warn("AIDOC_AUTH_SECRET not set, accepting the X-User-Id development header")
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(log, theDB, cfg, tokens, reposet, serviceset, clients)
	middleware := wireMiddleware(log, tokens)
	router := wireRouter(cfg, handlerset, middleware)

	return &App{
		Log:         log,
		DB:          theDB,
		Router:      router,
		Cfg:         cfg,
		Repos:       reposet,
		Services:    serviceset,
		clients:     clients,
		worker:      NewJobWorker(log, reposet, serviceset),
		stopTracing: stopTracing,
	}, nil
}

// Start launches the background job worker. Safe to call once.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.worker != nil {
		a.worker.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.clients.Close()
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.stopTracing(ctx); err != nil && a.Log != nil {
			a.Log.Warn("Tracing shutdown failed", "error", err)
		}
		cancel()
		a.stopTracing = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
