package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/mongodb"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
)

type stores struct {
	events  repository.EventStore
	users   repository.UserStore
	applied []string
	close   func()
}

// openStores connects the configured backend and brings its schema up to
// date.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		applied, err := database.MigratePostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logApplied(logger, applied)
		return &stores{
			events:  postgres.NewEventRepository(pool),
			users:   postgres.NewUserRepository(pool),
			applied: applied,
			close:   pool.Close,
		}, nil

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		disconnect := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("disconnect mongo", "error", err)
			}
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			disconnect()
			return nil, err
		}
		logger.Info("connected to mongodb", "database", cfg.Mongo.Database)
		return &stores{
			events: mongodb.NewEventRepository(db),
			users:  mongodb.NewUserRepository(db),
			close:  disconnect,
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		applied, err := database.MigrateSQLite(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("opened sqlite database", "path", cfg.SQLite.Path)
		logApplied(logger, applied)
		return &stores{
			events:  sqlite.NewEventRepository(db),
			users:   sqlite.NewUserRepository(db),
			applied: applied,
			close:   func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

func logApplied(logger *slog.Logger, applied []string) {
	for _, v := range applied {
		logger.Info("applied migration", "version", v)
	}
}
