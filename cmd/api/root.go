package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/config"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/router"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// envFile is the dotenv file read before the environment.
var envFile string

// NewRootCmd creates the catalog CLI. Without a subcommand it serves HTTP.
func NewRootCmd() *cobra.Command {
	serve := NewServeCmd()
	cmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Catalog service: accounts, authors and books over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded when present")
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

// bootstrap loads configuration and opens the logger and the database.
func bootstrap() (config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lg, func() { _ = lg.Sync() }, nil
}

// NewMigrateCmd applies pending migrations and exits.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, sync, err := bootstrap()
			if err != nil {
				return err
			}
			defer sync()
			sugar := lg.Sugar()

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			n, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			sugar.Infow("migrations applied", "count", n, "driver", cfg.Database.Driver)
			return nil
		},
	}
}

// NewServeCmd starts the HTTP server and blocks until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, lg, sync, err := bootstrap()
			if err != nil {
				return err
			}
			defer sync()
			sugar := lg.Sugar()
			sugar.Infow("starting catalog", "addr", cfg.HTTPAddr, "driver", cfg.Database.Driver)

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			if migrate {
				n, err := database.Migrate(cmd.Context(), db)
				if err != nil {
					return err
				}
				sugar.Infow("migrations applied", "count", n)
			}

			handler, err := router.New(sugar, db, router.Options{
				Token:         cfg.Token,
				BcryptCost:    cfg.BcryptCost,
				SnowflakeNode: cfg.SnowflakeNode,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			sugar.Info("service is running; press Ctrl+C to stop")

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
			}
			sugar.Info("shutting down")

			// give a short grace period for in-flight requests
			doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(doneCtx); err != nil {
				sugar.Warnf("http server shutdown failed: %v", err)
			}
			if err := db.PingContext(doneCtx); err != nil {
				sugar.Warnf("db ping on shutdown failed: %v", err)
			}
			sugar.Info("goodbye")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
