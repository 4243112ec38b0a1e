// StorePilot - bulk-edit backend for Nuvemshop catalogs.
// Serves the REST API and the MCP tools used by the planner agent.
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

	"github.com/redis/go-redis/v9"

	"storepilot/internal/config"
	"storepilot/internal/executor"
	"storepilot/internal/handler"
	"storepilot/internal/lock"
	"storepilot/internal/middleware"
	"storepilot/internal/mirror"
	"storepilot/internal/nuvemshop"
	"storepilot/internal/reversal"
	"storepilot/internal/service"
	"storepilot/internal/transport"
)

// limiterIdle is how long an unused per-store write limiter is kept.
const limiterIdle = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_language", cfg.StoreLanguage),
		slog.Bool("redis", cfg.Secrets.RedisURL != ""),
		slog.Float64("rate_limit_rps", cfg.RateLimitRPS),
	)

	// Mirror database: migrate before serving
	db, err := mirror.Open(cfg.Secrets.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening mirror: %w", err)
	}
	defer db.Close()

	if err := mirror.Migrate(db); err != nil {
		return fmt.Errorf("migrating mirror: %w", err)
	}
	repo, err := mirror.NewRepository(db)
	if err != nil {
		return fmt.Errorf("loading queries: %w", err)
	}

	// Per-store Nuvemshop clients share one write limiter per store
	limiters := transport.NewLimiters(cfg.RateLimitRPS, cfg.RateLimitBurst)
	connector := nuvemshop.NewConnector(repo, nuvemshop.Config{
		BaseURL:   cfg.Nuvemshop.APIURL,
		UserAgent: cfg.Nuvemshop.UserAgent,
		Language:  cfg.StoreLanguage,
	}, limiters, logger)

	locker, closeLocker, err := createLocker(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating store lock: %w", err)
	}
	defer closeLocker()

	exec := executor.New(repo, connector,
		executor.WithLocker(locker),
		executor.WithLanguage(cfg.Language()),
		executor.WithLogger(logger),
	)
	svc := service.New(exec, reversal.New(repo, exec, logger), repo, logger)

	h := handler.New(svc, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts. Writes are long because
	// apply?wait=true runs a whole plan inside the request.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLimiters(sweepCtx, limiters)

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}

		// Background plans keep their lock until they finish
		logger.Info("waiting for running plans")
		exec.Wait()
	}

	logger.Info("server stopped")
	return nil
}

// createLocker returns the Redis lock when REDIS_URL is set, so instances
// sharing a database also share plan exclusion. Otherwise an in-process lock.
func createLocker(cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Secrets.RedisURL == "" {
		logger.Warn("REDIS_URL not set, plan lock is local to this instance")
		return lock.NewLocal(cfg.LockWait), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Secrets.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}
	return lock.NewRedis(rdb, cfg.LockTTL, cfg.LockWait, logger), func() { rdb.Close() }, nil
}

// sweepLimiters drops idle per-store limiters until ctx ends.
func sweepLimiters(ctx context.Context, limiters *transport.Limiters) {
	ticker := time.NewTicker(limiterIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiters.Sweep(limiterIdle)
		}
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
