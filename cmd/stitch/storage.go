package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aussiebroadwan/stitch/pkg/storage"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/fs"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/mongo"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/postgres"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/redis"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/sqlite"
)

const (
	defaultMongoDatabase   = "stitch"
	defaultMongoCollection = "users"
)

// openStorage builds the driver named in cfg. The returned close function
// releases whatever connection the driver holds.
func openStorage(ctx context.Context, cfg StorageConfig) (storage.Storage, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case "memory":
		return storage.NewMemory(), noop, nil

	case "fs":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create state dir: %w", err)
		}
		s, err := fs.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create state dir: %w", err)
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "redis":
		s, err := redis.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "postgres":
		if cfg.Table == "" {
			s, err := postgres.Connect(ctx, cfg.URL)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		}

		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: open pool: %w", err)
		}
		s, err := postgres.New(ctx, pool, cfg.Table)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	case "mongo":
		database, collection := cfg.Database, cfg.Collection
		if database == "" {
			database = defaultMongoDatabase
		}
		if collection == "" {
			collection = defaultMongoCollection
		}
		s, err := mongo.Connect(ctx, cfg.URL, database, collection)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.WithoutCancel(ctx)) }, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
