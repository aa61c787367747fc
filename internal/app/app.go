// Package app wires storage, the change bus and the planner components for
// one workspace. The CLI and the HTTP server both start from Open.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dayplanner/internal/aggregate"
	"dayplanner/internal/config"
	"dayplanner/internal/db"
	"dayplanner/internal/events"
	"dayplanner/internal/logging"
	"dayplanner/internal/migrate"
	"dayplanner/internal/planner"
	"dayplanner/internal/repo"
)

type App struct {
	Workspace string
	Config    *config.Config
	Logger    *zap.Logger
	Location  *time.Location
	WeekStart time.Weekday

	DB      *sql.DB
	Storage repo.Storage
	Bus     *events.Bus
	Events  events.Writer
	Store   *planner.Store
	Reader  *aggregate.Reader
}

// Open migrates the workspace database and builds the store and reader.
// The reader is filled from a full scan and then follows the bus.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := cfg.WeekStartDay()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		Workspace: workspace,
		Config:    cfg,
		Logger:    logger,
		Location:  loc,
		WeekStart: weekStart,
		DB:        conn,
		Storage:   repo.Repo{DB: conn},
		Bus:       events.NewBus(),
		Events:    events.Writer{DB: conn, Logger: logger},
	}
	a.Reader = aggregate.NewReader(a.Storage, cfg.Storage.KeyPrefix, logger.Named("aggregate"))
	a.Bus.Subscribe(a.Events.Handler())
	a.Bus.Subscribe(a.Reader.HandleChange)
	a.Store = planner.New(a.Storage, planner.Options{
		Prefix:       cfg.Storage.KeyPrefix,
		Location:     loc,
		Seed:         cfg.Seed.Enabled,
		RangePolicy:  planner.RangePolicy(cfg.Ranges.OnUpdate),
		MaxRangeDays: cfg.Calendar.MaxRangeDays,
		Publisher:    a.Bus,
		Logger:       logger.Named("planner"),
	})
	if err := a.Reader.Refresh(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("workspace opened", zap.String("db", db.Path(workspace)), zap.String("timezone", loc.String()))
	return a, nil
}

func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.DB.Close()
}
