// Package main is the entrypoint for the RelayQ job queue server.
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
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/openboard/relayq/internal/api"
	"github.com/openboard/relayq/internal/api/handler"
	mw "github.com/openboard/relayq/internal/api/middleware"
	"github.com/openboard/relayq/internal/api/response"
	"github.com/openboard/relayq/internal/config"
	"github.com/openboard/relayq/internal/jobs"
	"github.com/openboard/relayq/internal/metrics"
	"github.com/openboard/relayq/internal/store"
	"github.com/openboard/relayq/internal/stream"
)

const shutdownTimeout = 30 * time.Second

// jobStore is what both store backends provide: the record contract plus the
// rate-limit counter.
type jobStore interface {
	store.Store
	store.Counter
}

func main() {
	// .env is a local convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Development()))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("config loaded", "env", cfg.Env, "job_ttl", cfg.JobTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	var trigger jobs.Trigger
	if cfg.WorkerURL != "" {
		trigger = jobs.NewWorkerClient(cfg.WorkerURL, cfg.WorkerSecret, cfg.TriggerTimeout, slog.Default())
		slog.Info("worker client initialized", "url", cfg.WorkerURL)
	} else {
		slog.Warn("no WORKER_URL configured; jobs rely on direct worker callbacks")
	}

	metrics.Register()

	svc := jobs.NewService(st, trigger, cfg.JobTTL, slog.Default())
	relay := stream.NewRelay(svc, cfg.StreamPollInterval, cfg.StreamMaxDuration, slog.Default())

	deps := api.Dependencies{
		WorkerAuth: mw.NewWorkerAuth(cfg.WorkerSecret, cfg.Development()),
		RateLimit:  mw.NewRateLimit(st, cfg.RateLimitPerMin),

		HealthHandler:      healthHandler(st),
		CreateJobHandler:   handler.NewCreateHandler(svc),
		GetJobHandler:      handler.NewGetHandler(svc),
		CancelJobHandler:   handler.NewCancelHandler(svc),
		StreamJobHandler:   handler.NewStreamHandler(relay),
		ProgressHandler:    handler.NewProgressHandler(svc),
		SessionJobsHandler: handler.NewListSessionJobsHandler(svc),
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     api.NewRouter(deps),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout must cover the longest-lived SSE stream.
		WriteTimeout: cfg.StreamMaxDuration + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newStore picks Redis when configured, falling back to the embedded Badger
// store in development. Config validation guarantees Redis in production.
func newStore(cfg *config.Config) (jobStore, error) {
	if cfg.RedisURL != "" {
		st, err := store.NewRedisStore(cfg.RedisURL, cfg.SessionIndexCap)
		if err != nil {
			return nil, err
		}
		slog.Info("using redis store")
		return st, nil
	}
	st, err := store.NewBadgerStore(cfg.BadgerPath, cfg.SessionIndexCap)
	if err != nil {
		return nil, err
	}
	slog.Info("using embedded badger store", "path", cfg.BadgerPath)
	return st, nil
}

func newLogger(development bool) *slog.Logger {
	if development {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// healthHandler checks store connectivity.
func healthHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"Job store unreachable", map[string]string{"store": "degraded"})
			return
		}
		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": map[string]string{"store": "ok"},
		})
	}
}
