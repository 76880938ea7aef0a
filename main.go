// Package main is the entry point for the WhatsApp expense bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	// Embed timezone data for minimal container images.
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/egresos-bot/internal/bot"
	"gitlab.com/yelinaung/egresos-bot/internal/config"
	"gitlab.com/yelinaung/egresos-bot/internal/logger"
	"gitlab.com/yelinaung/egresos-bot/internal/server"
	"gitlab.com/yelinaung/egresos-bot/internal/telemetry"
	"gitlab.com/yelinaung/egresos-bot/internal/whatsapp"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "egresos-bot",
		Short:         "WhatsApp bot that records expenses for the household dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the WhatsApp webhook",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the schema for the configured store backend",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("egresos-bot %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelExporter, version)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to set up telemetry")
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
		return err
	}
	defer st.close()

	logger.Log.Info().Str("backend", cfg.StoreBackend).Msg("Store initialized successfully")

	notifier := whatsapp.NewClient(cfg.GraphAPIBaseURL, cfg.PhoneNumberID, cfg.MetaToken)
	expenseBot := bot.New(cfg, st.sessions, st.expenses, notifier)
	srv := server.New(cfg.VerifyToken, expenseBot)

	logger.Log.Info().
		Str("version", version).
		Int("allowed_phones", len(cfg.AllowedPhones)).
		Msg("Starting egresos bot")

	if err := srv.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Port)); err != nil {
		logger.Log.Error().Err(err).Msg("Server stopped with error")
		return err
	}

	logger.Log.Info().Msg("Shutting down...")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Opening a store applies its schema.
	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		logger.Log.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to run migrations")
		return err
	}
	st.close()

	logger.Log.Info().Str("backend", cfg.StoreBackend).Msg("Migrations applied")
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load config")
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.SetHashSalt(cfg.LogHashSalt)
	return cfg, nil
}
