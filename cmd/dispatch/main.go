package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/fieldops/dispatch/internal/app"
	"github.com/fieldops/dispatch/internal/shared/infrastructure/migrations"
	"github.com/fieldops/dispatch/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Workforce scheduler for field engineers servicing data centers",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scheduling service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := app.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			if container.Consumer != nil {
				go func() {
					if err := container.Consumer.Start(ctx); err != nil && ctx.Err() == nil {
						container.Logger.Error("event consumer stopped", "error", err)
					}
				}()
			}

			if err := container.Expirer.Start(ctx); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				if err := container.Server.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return container.Server.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
