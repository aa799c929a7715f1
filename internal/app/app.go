// Package app assembles the service components from configuration. The API
// server and the admin CLI share it.
package app

import (
	"inquiryflow/internal/config"
	"inquiryflow/internal/crm/insightly"
	"inquiryflow/internal/crm/monday"
	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/database"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/fanout"
	"inquiryflow/internal/lifecycle"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/mapping"
	"inquiryflow/internal/staff"
	"inquiryflow/internal/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Store      *store.Store
	Sync       *crmsync.Orchestrator
	Sweeper    *crmsync.Sweeper
	Duplicates *duplicates.Service
	Handler    *lifecycle.Handler
	Dispatcher *lifecycle.Dispatcher
}

// New opens the database and wires every component
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logging.OrNop(log)

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, db, log), nil
}

// Wire builds the components over an open database
func Wire(cfg *config.Config, db *gorm.DB, log *zap.Logger) *App {
	log = logging.OrNop(log)
	s := store.New(db)

	clients := map[domain.SyncTarget]crmsync.Client{}
	var searcher duplicates.Searcher
	if cfg.Insightly.Enabled {
		c := insightly.New(insightly.OptionsFromConfig(&cfg.Insightly))
		clients[domain.SyncTargetInsightly] = c
		searcher = c
	} else {
		log.Info("insightly sync disabled")
	}
	if cfg.Monday.Enabled {
		clients[domain.SyncTargetMonday] = monday.New(monday.OptionsFromConfig(&cfg.Monday))
	} else {
		log.Info("monday sync disabled")
	}

	orch := crmsync.New(crmsync.Options{
		Store:        s,
		Registry:     mapping.NewRegistry(),
		Clients:      clients,
		DashboardURL: cfg.App.DashboardURL,
		Logger:       log,
	})
	engine := fanout.New(s, staff.NewDirectory(db), cfg.App.DashboardURL, log)
	handler := lifecycle.NewHandler(engine, orch, log)

	return &App{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Store:      s,
		Sync:       orch,
		Sweeper:    crmsync.NewSweeper(orch, cfg.Sync.SweepInterval, cfg.Sync.SweepBatchSize, log),
		Duplicates: duplicates.New(searcher, log),
		Handler:    handler,
		Dispatcher: lifecycle.NewDispatcher(s, handler, lifecycle.DispatcherOptions{
			PollInterval: cfg.Dispatcher.PollInterval,
			BatchSize:    cfg.Dispatcher.BatchSize,
			MaxAttempts:  cfg.Dispatcher.MaxAttempts,
		}, log),
	}
}

// Close releases the database
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
