package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/brandcount/internal/infra/httpserver"
	"github.com/bryanwahyu/brandcount/internal/middleware"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create the schema before serving")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, migrate bool) error {
	cfg, logger := opts.cfg, opts.logger
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := sqlstore.Migrate(ctx, a.db, a.dialect); err != nil {
			return err
		}
	}

	var limiter *middleware.RateLimiter
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst)
	}
	handler := httpserver.NewRouter(a.svc, httpserver.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateLimiter:    limiter,
		Metrics:        a.metrics,
		HealthCheckers: a.checkers,
		MaxTextChars: cfg.Server.MaxTextChars,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger.Named("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// panggilan model sendiri bisa sampai model.timeout
		WriteTimeout: cfg.Model.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	// graceful shutdown
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return err
	}
	return nil
}
