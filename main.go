package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "todo-api",
		Short:         "Serve the todo CRUD API backed by PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *cfg, newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Database.URL, "database-url", cfg.Database.URL, "PostgreSQL connection string")
	flags.DurationVar(&cfg.Database.ConnMaxLifetime, "db-conn-max-lifetime", cfg.Database.ConnMaxLifetime, "recycle pooled connections after this long")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	root.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	root.Flags().StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "server URL advertised in /openapi.json")
	root.Flags().BoolVar(&cfg.Telemetry.Enabled, "otel", cfg.Telemetry.Enabled, "export traces and metrics over OTLP/HTTP")

	root.AddCommand(&cobra.Command{
		Use:   "init-db",
		Short: "Create the todo table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initDB(cmd.Context(), *cfg, newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))
		},
	})

	return root
}

func initDB(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	store, err := OpenPgStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer store.Close()

	logger.Info("creating tables")
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create tables", "error", err)
		return err
	}
	return nil
}

func runServer(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	shutdownTelemetry, err := setupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("error shutting down telemetry", "error", err)
		}
	}()

	store, err := OpenPgStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer store.Close()

	logger.Info("creating tables")
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create tables", "error", err)
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: NewRouter(store, logger, cfg),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
