// relay forwards GET /kalshi to the Kalshi markets endpoint with the server's
// API key, so the browser never sees it.
//
// Usage: go run ./cmd/relay [-config pulse.yaml] [-port 3000]
//
// PORT and KALSHI_API_KEY are read from the environment or a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/prediction-pulse/internal/config"
	"github.com/rickgao/prediction-pulse/internal/relay"
	"github.com/rickgao/prediction-pulse/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	port := flag.Int("port", 0, "listen port (overrides PORT and relay.port)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		cfg.Relay.Port = p
	}
	if *port > 0 {
		cfg.Relay.Port = *port
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if cfg.Relay.APIKey == "" {
		logger.Warn("KALSHI_API_KEY is not set, upstream may reject requests")
	}

	handler := relay.NewHandler(cfg.Relay.UpstreamURL, cfg.Relay.APIKey, cfg.Relay.Timeout, relay.WithLogger(logger))
	server := relay.NewServer(fmt.Sprintf(":%d", cfg.Relay.Port), handler, logger)

	logger.Info("starting relay",
		"version", version.String(),
		"port", cfg.Relay.Port,
		"upstream", cfg.Relay.UpstreamURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("relay failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("relay stopped")
}
