// tickertap subscribes to the Kalshi ticker feed and prints each update as
// a JSON line on stdout.
//
// Usage: go run ./cmd/tickertap [-config pulse.yaml] [-channels ticker_v2] [-raw]
//
// Authentication uses KALSHI_API_KEY_ID and KALSHI_PRIVATE_KEY_PATH when both
// are set, otherwise a bearer KALSHI_API_KEY.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/prediction-pulse/internal/auth"
	"github.com/rickgao/prediction-pulse/internal/config"
	"github.com/rickgao/prediction-pulse/internal/connection"
	"github.com/rickgao/prediction-pulse/internal/router"
	"github.com/rickgao/prediction-pulse/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	channels := flag.String("channels", connection.ChannelTickerV2, "comma-separated channels to subscribe to")
	raw := flag.Bool("raw", false, "print messages as received instead of parsed")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// stdout carries the feed
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting tickertap", "version", version.String(), "url", cfg.Kalshi.WSURL)

	header, err := handshake(cfg)
	if err != nil {
		logger.Error("missing credentials", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streamCfg := connection.DefaultStreamConfig()
	streamCfg.Client.URL = cfg.Kalshi.WSURL
	streamCfg.Client.Header = header
	streamCfg.Channels = splitList(*channels)

	stream := connection.NewStream(streamCfg, logger)
	if err := stream.Start(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *raw {
		printRaw(ctx, stream, out)
	} else {
		printParsed(ctx, stream, out, logger)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream.Stop(shutdownCtx)

	s := stream.Stats()
	logger.Info("tickertap stopped", "attempts", s.Attempts, "reconnects", s.Reconnects)
}

// handshake prefers signed headers and falls back to a bearer key.
func handshake(cfg *config.Config) (connection.HeaderFunc, error) {
	creds, err := auth.LoadOptional(cfg.Kalshi.APIKey, cfg.Kalshi.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		return creds.WebSocketHeader, nil
	}
	if cfg.Relay.APIKey == "" {
		return nil, errors.New("KALSHI_API_KEY must be set")
	}
	return connection.BearerHeader(cfg.Relay.APIKey), nil
}

func printRaw(ctx context.Context, stream *connection.Stream, out *bufio.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-stream.Messages():
			if !ok {
				return
			}
			out.Write(msg.Data)
			out.WriteByte('\n')
			out.Flush()
		}
	}
}

func printParsed(ctx context.Context, stream *connection.Stream, out *bufio.Writer, logger *slog.Logger) {
	r := router.NewRouter(router.DefaultRouterConfig(), stream.Messages(), logger)
	if err := r.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(stopCtx)
	}()

	enc := json.NewEncoder(out)
	tickers := r.Tickers()
	for {
		batch := tickers.ReceiveBatch(256)
		if batch == nil {
			break
		}
		for _, m := range batch {
			if err := enc.Encode(m); err != nil {
				logger.Error("failed to write ticker", "error", err)
				return
			}
		}
		out.Flush()
	}

	st := r.Stats()
	logger.Info("router stats",
		"received", st.MessagesReceived,
		"routed", st.MessagesRouted,
		"parse_errors", st.ParseErrors,
		"skipped", st.Skipped,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
