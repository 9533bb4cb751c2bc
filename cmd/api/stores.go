package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourusername/session-auth/internal/auth"
	"github.com/yourusername/session-auth/internal/config"
	"github.com/yourusername/session-auth/internal/users"
)

const connectTimeout = 10 * time.Second

// setupUserStore は設定に応じたユーザーストアと後始末用の関数を返します。
func setupUserStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (users.Store, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.UserStore {
	case config.UserStoreMongo:
		client, err := users.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closer := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			if err := client.Disconnect(shutdownCtx); err != nil {
				log.Warn("failed to disconnect mongo", "error", err)
			}
		}

		store := users.NewMongoStore(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
		if err := store.EnsureIndexes(ctx); err != nil {
			closer()
			return nil, nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		log.Info("user store ready", "backend", "mongo", "database", cfg.MongoDatabase)
		return store, closer, nil

	case config.UserStorePostgres:
		db, err := users.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		closer := func() {
			if err := db.Close(); err != nil {
				log.Warn("failed to close postgres", "error", err)
			}
		}

		if err := users.RunMigrations(ctx, db); err != nil {
			closer()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("user store ready", "backend", "postgres")
		return users.NewPostgresStore(db), closer, nil

	case config.UserStoreMemory:
		log.Warn("using in-memory user store; registrations are lost on restart")
		return users.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
}

// setupSessionStore は設定に応じたセッションストアと後始末用の関数を返します。
func setupSessionStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (auth.Store, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := auth.ConnectRedis(ctx, cfg.SessionRedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closer := func() {
			if err := rdb.Close(); err != nil {
				log.Warn("failed to close redis", "error", err)
			}
		}
		log.Info("session store ready", "backend", "redis")
		return auth.NewRedisStore(rdb), closer, nil

	case config.SessionStoreMemory:
		log.Warn("using in-memory session store; sessions are lost on restart")
		return auth.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
}
