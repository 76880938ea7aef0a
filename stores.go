package main

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/egresos-bot/internal/bot"
	"gitlab.com/yelinaung/egresos-bot/internal/config"
	"gitlab.com/yelinaung/egresos-bot/internal/database"
	"gitlab.com/yelinaung/egresos-bot/internal/logger"
	"gitlab.com/yelinaung/egresos-bot/internal/repository"
)

// stores bundles the session and expense adapters of one backend.
type stores struct {
	sessions bot.SessionStore
	expenses bot.ExpenseSink
	close    func()
}

// openStores connects to the configured backend and applies its schema.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			sessions: repository.NewSessionRepository(pool),
			expenses: repository.NewExpenseRepository(pool),
			close:    pool.Close,
		}, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions: repository.NewSQLiteSessionRepository(db),
			expenses: repository.NewSQLiteExpenseRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Log.Warn().Err(err).Msg("Failed to close sqlite database")
				}
			},
		}, nil

	case config.BackendFirestore:
		client, err := database.Firestore(ctx, database.FirestoreCredentials{
			ProjectID:   cfg.Firebase.ProjectID,
			ClientEmail: cfg.Firebase.ClientEmail,
			PrivateKey:  cfg.Firebase.PrivateKey,
		})
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions: repository.NewFirestoreSessionRepository(client),
			expenses: repository.NewFirestoreExpenseRepository(client),
			close: func() {
				if err := database.CloseFirestore(); err != nil {
					logger.Log.Warn().Err(err).Msg("Failed to close firestore client")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
