// Package relay forwards the Kalshi markets listing to browsers that cannot
// call the exchange API directly.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// FailureMessage is returned to the caller whenever the upstream call fails.
const FailureMessage = "Failed to fetch Kalshi data"

// maxBody bounds how much of the upstream response is read.
const maxBody = 32 << 20

// Handler relays GET requests to a single upstream URL.
type Handler struct {
	upstream string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a relay for upstream authenticated with apiKey.
func NewHandler(upstream, apiKey string, timeout time.Duration, opts ...Option) *Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	h := &Handler{
		upstream: upstream,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// ServeHTTP fetches the upstream document and writes it back as JSON.
// The upstream status is not propagated; any body that decodes as JSON is
// passed through with 200.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.fetch(r.Context())
	if err != nil {
		h.logger.Error("error fetching kalshi data", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": FailureMessage})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) fetch(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.upstream, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("upstream returned %d with non-JSON body", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		h.logger.Warn("kalshi upstream error passed through", "status", resp.StatusCode)
	}
	return json.RawMessage(data), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the relay on its own port.
type Server struct {
	addr   string
	server *http.Server
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer mounts h at GET /kalshi on addr.
func NewServer(addr string, h *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("GET /kalshi", h)
	return &Server{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server stops. It returns nil after
// Shutdown.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("relay already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("server running", "addr", s.addr)
	err := s.server.ListenAndServe()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown relay: %w", err)
	}
	return nil
}
