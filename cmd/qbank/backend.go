package main

import (
	"context"
	"log/slog"

	"qbank/internal/config"
	"qbank/internal/mongostore"
	"qbank/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.ImageStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		slog.Debug("opening sqlite store", "path", cfg.SQLite.Path)
		st, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		slog.Debug("opening mongo store", "database", cfg.Mongo.Database, "collection", cfg.Mongo.Collection)
		st, err := mongostore.Open(ctx, mongostore.Options{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.MongoTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

func withStore(ctx context.Context, cfg *config.Config, fn func(store.ImageStore) error) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()
	return fn(st)
}
