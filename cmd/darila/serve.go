package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/api"
	"github.com/erazemk/darila/internal/auth"
	"github.com/erazemk/darila/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return err
	}
	defer a.Close()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Generated on first run and kept in the database.
		jwtSecret, err = store.GetJWTSecret(ctx, a.db)
		if err != nil {
			logger.Error("failed to get JWT secret", zap.Error(err))
			return err
		}
	}

	handler := api.NewRouter(api.Options{
		DB:             a.db,
		JWTSecret:      jwtSecret,
		Owner:          cfg.Owner,
		Catalog:        a.catalog,
		Importer:       a.importer,
		Uploads:        a.uploads,
		Metrics:        a.metrics,
		Limiter:        auth.NewLoginLimiter(cfg.LoginRate),
		Logger:         logger,
		MaxUploadBytes: cfg.ImageMaxBytes,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Bulk imports fetch images before answering.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("server stopped, closing database")
	return nil
}
