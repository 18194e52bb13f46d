package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	auth "github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/config"
	"github.com/sigma-sevilla/sigma-auth/logging"
	"github.com/sigma-sevilla/sigma-auth/maintenance"
	"github.com/sigma-sevilla/sigma-auth/server"
	"github.com/sigma-sevilla/sigma-auth/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sigma-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger := logging.New(logging.NewHandlerLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	models := append(auth.Models(), maintenance.Models()...)
	if err := store.CreateSchema(ctx, db, models...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		return err
	}

	if cfg.GetSuperAdminPassword() == "" {
		logger.Warn("Bootstrap super-admin disabled, no password configured")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.GetHTTPAddr(), "driver", cfg.GetDatabaseDriver())
		errCh <- srv.App.Listen(cfg.GetHTTPAddr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	if err := srv.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
		return err
	}
	return nil
}
