// dashboard serves the market table, price history charts and live updates.
//
// Usage: go run ./cmd/dashboard [-config pulse.yaml] [-port 8080]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/backend"
	"github.com/rickgao/prediction-pulse/internal/config"
	"github.com/rickgao/prediction-pulse/internal/dashboard"
	"github.com/rickgao/prediction-pulse/internal/enrich"
	"github.com/rickgao/prediction-pulse/internal/relay"
	"github.com/rickgao/prediction-pulse/internal/render"
	"github.com/rickgao/prediction-pulse/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env is used otherwise)")
	port := flag.Int("port", 0, "listen port (overrides dashboard.port)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Dashboard.Port = *port
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting dashboard",
		version.Attr(),
		"backend", cfg.Backend.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view, mode, err := viewSettings(cfg.Dashboard)
	if err != nil {
		logger.Error("invalid dashboard settings", "error", err)
		os.Exit(1)
	}

	st, release, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	defer release()

	pipeline := dashboard.NewPipeline(dashboard.PipelineConfig{
		SnapshotLimit: cfg.Dashboard.SnapshotLimit,
		ChangeMode:    mode,
		CacheTTL:      cfg.Dashboard.CacheTTL,
	}, st, logger.With("component", "pipeline"))

	serverCfg := dashboard.ServerConfig{
		Addr:         fmt.Sprintf(":%d", cfg.Dashboard.Port),
		DefaultView:  view,
		PushInterval: cfg.Dashboard.PushInterval,
	}
	if cfg.Dashboard.EnableRelay {
		if cfg.Relay.APIKey == "" {
			logger.Warn("relay enabled without KALSHI_API_KEY, upstream may reject requests")
		}
		serverCfg.Relay = relay.NewHandler(cfg.Relay.UpstreamURL, cfg.Relay.APIKey, cfg.Relay.Timeout,
			relay.WithLogger(logger.With("component", "relay")))
	}

	server := dashboard.NewServer(serverCfg, pipeline, render.NewFormatter(language.English), logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		release()
		os.Exit(1)
	}

	logger.Info("dashboard running",
		"url", fmt.Sprintf("http://localhost:%d/", cfg.Dashboard.Port),
		"relay", cfg.Dashboard.EnableRelay,
	)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-server.Err():
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("dashboard stopped")
}

// viewSettings parses the configured default view and change mode. It runs
// before the backend is opened so bad settings never leave a pool behind.
func viewSettings(d config.DashboardConfig) (dashboard.View, enrich.ChangeMode, error) {
	var view dashboard.View

	key, err := aggregate.ParseSortKey(d.DefaultSort)
	if err != nil {
		return view, "", fmt.Errorf("dashboard.default_sort: %w", err)
	}
	dir, err := aggregate.ParseDirection(d.DefaultDir)
	if err != nil {
		return view, "", fmt.Errorf("dashboard.default_dir: %w", err)
	}
	mode, err := enrich.ParseChangeMode(d.ChangeMode)
	if err != nil {
		return view, "", fmt.Errorf("dashboard.change_mode: %w", err)
	}

	view = dashboard.View{
		Sort:   key,
		Dir:    dir,
		Filter: aggregate.Filter{Source: aggregate.All, Category: aggregate.All},
		Limit:  d.DisplayLimit,
	}
	return view, mode, nil
}
