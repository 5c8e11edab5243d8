// Package main is the entry point for the RallyPoint token API server.
//
// It loads configuration, connects to the record store, builds the HTTP
// server around the core chassis (middleware, routing, health checks), and
// wires the RTC token issuance handler under /v1.
//
// In local mode (APP_ENV=local), it runs as a standard HTTP server on the
// configured port. In Lambda mode, it will use the chiadapter to bridge API
// Gateway events to the chi router (to be wired when the Lambda adapter
// dependency is added).
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rallypoint/internal/api/handlers"
	"rallypoint/internal/config"
	"rallypoint/internal/core"
	"rallypoint/internal/db"
	"rallypoint/internal/rtc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// Load configuration. For local development the SecretProvider is nil
	// since SSM resolution is bypassed when APP_ENV=local; in deployed
	// environments the SSM provider resolves *_SSM_PARAM bindings.
	var provider config.SecretProvider
	if env, _ := os.LookupEnv("APP_ENV"); env != "" && env != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}

	cfg, err := config.LoadConfig(provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Initialize structured logger.
	logger := newLogger(cfg.LogLevel)
	logger.Info("rallypoint token API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	// Connect to the record store. The pool is only used by the health
	// probe today; handler-level store access hangs off the same pool when
	// future endpoints need it.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to record store: %w", err)
	}

	// Build the server.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Closers = append(srv.Closers, pool.Close)
	srv.HealthProbes = append(srv.HealthProbes, databaseProbe{pool: pool})

	// Wire the RTC token handler.
	tokenService := rtc.NewTokenService(
		cfg.RTC.SigningSecret.Unmask(),
		cfg.RTC.TokenTTL,
		cfg.RTC.Issuer,
		nil,
	)
	rtcHandler := handlers.NewRTCHandler(tokenService, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		rtcHandler.RegisterRoutes(r)
	})

	// Mount all routes (middleware chain + versioned endpoints + health).
	srv.MountRoutes()

	// Determine if running in Lambda mode.
	// AWS Lambda sets AWS_LAMBDA_RUNTIME_API when executing inside the runtime.
	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}

	return runHTTPServer(srv, cfg, logger)
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda starts the server in AWS Lambda mode using the chi adapter.
// This is a placeholder that will be implemented when the
// aws-lambda-go-api-proxy dependency is added.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	// TODO: Wire chiadapter.New(srv.Handler()) and lambda.Start() when the
	// aws-lambda-go-api-proxy dependency is added.
	logger.Error("Lambda mode is not yet implemented; run with APP_ENV=local for HTTP mode")
	return fmt.Errorf("lambda mode not yet implemented")
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Shutdown server resources (DB pool, etc.).
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// databaseProbe reports record-store connectivity for GET /health.
type databaseProbe struct {
	pool *pgxpool.Pool
}

func (p databaseProbe) Name() string { return "database" }

func (p databaseProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
