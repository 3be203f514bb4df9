package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	config "task-tracker.com/task-tracker/internal/configs"
	httpapi "task-tracker.com/task-tracker/internal/http"
	middleware "task-tracker.com/task-tracker/internal/http/middlewares"
	"task-tracker.com/task-tracker/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task tracker HTTP API on TASKS_APP_HOST:TASKS_APP_PORT",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		limiter, closeLimiter, err := newLimiter(a.cfg)
		if err != nil {
			return err
		}
		defer closeLimiter()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := echo.New()
		httpapi.Register(e, httpapi.NewHandler(a.service), limiter, logger.Named(a.log, "http"))

		serverErr := make(chan error, 1)
		go func() {
			a.log.Info().Str("addr", a.cfg.AppURL()).Str("rate_limit_backend", a.cfg.RateLimitBackend).Msg("HTTP server listening")
			if err := e.Start(a.cfg.AppURL()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("HTTP server shutdown failed")
			return err
		}

		a.log.Info().Msg("HTTP server shut down gracefully")
		return nil
	},
}

func newLimiter(cfg config.Config) (middleware.Limiter, func(), error) {
	if cfg.RateLimitBackend != config.RateLimitRedis {
		return middleware.NewMemoryLimiter(cfg.RateLimit, time.Minute), func() {}, nil
	}

	client, err := config.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return middleware.NewRedisLimiter(client, cfg.RedisKeyPrefix, cfg.RateLimit, time.Minute), client.Close, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
