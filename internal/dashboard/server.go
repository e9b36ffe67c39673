package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/prediction-pulse/internal/aggregate"
	"github.com/rickgao/prediction-pulse/internal/render"
	"github.com/rickgao/prediction-pulse/internal/store"
	"github.com/rickgao/prediction-pulse/internal/version"
)

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr         string
	DefaultView  View
	PushInterval time.Duration
	Relay        http.Handler // mounted at /kalshi when set
}

// Server serves the dashboard.
type Server struct {
	cfg      ServerConfig
	pipeline *Pipeline
	format   *render.Formatter
	hub      *Hub
	logger   *slog.Logger
	srv      *http.Server
	errCh    chan error
}

// NewServer creates a server for pipeline.
func NewServer(cfg ServerConfig, pipeline *Pipeline, format *render.Formatter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 30 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		format:   format,
		hub:      NewHub(pipeline, cfg.PushInterval, logger),
		logger:   logger,
		errCh:    make(chan error, 1),
	}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/markets", s.handleMarkets)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistory)
	mux.HandleFunc("GET /api/movers", s.handleMovers)
	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.cfg.Relay != nil {
		mux.Handle("GET /kalshi", s.cfg.Relay)
	}
	return withRequestID(s.logger, mux)
}

// Start begins serving and pushing updates.
func (s *Server) Start(ctx context.Context) error {
	s.hub.Start(ctx)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()

	s.logger.Info("dashboard listening", "addr", s.cfg.Addr, "push_interval", s.cfg.PushInterval)
	return nil
}

// Err reports a listener failure after Start.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Stop()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown dashboard: %w", err)
	}
	s.logger.Info("dashboard stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, err := s.parseView(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st := render.State{Sort: v.Sort, Dir: v.Dir, Source: v.Filter.Source, Category: v.Filter.Category}
	if r.URL.Query().Get("limit") != "" {
		limit := v.Limit
		st.Limit = &limit
	}

	res, err := s.pipeline.Load(r.Context(), v)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		s.logger.Error("render cycle failed", "error", err, "request_id", requestID(r))
		http.Error(w, "failed to load market data", http.StatusBadGateway)
		return
	}

	var page render.Page
	if res == nil {
		page = s.format.NewPage(nil, nil, nil, st)
	} else {
		page = s.format.NewPage(res.Groups, res.Sources, res.Categories, st)
		page.GeneratedAt = res.GeneratedAt
	}
	page.Version = version.String()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePage(w, page); err != nil {
		s.logger.Error("write page failed", "error", err)
	}
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	v, err := s.parseView(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.Load(r.Context(), v)
	switch {
	case errors.Is(err, store.ErrNoRows):
		writeJSON(w, http.StatusOK, &Result{Groups: []aggregate.Group{}})
	case err != nil:
		s.logger.Error("render cycle failed", "error", err, "request_id", requestID(r))
		writeError(w, http.StatusBadGateway, "failed to load market data")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	points, err := s.pipeline.History(r.Context(), id)
	if err != nil {
		s.logger.Error("history fetch failed", "market_id", id, "error", err, "request_id", requestID(r))
		writeError(w, http.StatusBadGateway, "failed to load price history")
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		label = id
	}
	writeJSON(w, http.StatusOK, s.format.Chart(label, points))
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	minChange, err := floatParam(q.Get("min_change"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_change: "+err.Error())
		return
	}
	minVolume, err := floatParam(q.Get("min_volume"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_volume: "+err.Error())
		return
	}

	rows, err := s.pipeline.Movers(r.Context(), limit, minChange, minVolume)
	switch {
	case errors.Is(err, store.ErrNoRows):
		writeJSON(w, http.StatusOK, []any{})
	case err != nil:
		s.logger.Error("movers failed", "error", err, "request_id", requestID(r))
		writeError(w, http.StatusBadGateway, "failed to load market data")
	default:
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"clients": s.hub.Clients(),
	})
}

// parseView reads sort, dir, source, category and limit, falling back to
// the configured defaults.
func (s *Server) parseView(r *http.Request) (View, error) {
	q := r.URL.Query()
	v := s.cfg.DefaultView

	if raw := q.Get("sort"); raw != "" {
		key, err := aggregate.ParseSortKey(raw)
		if err != nil {
			return View{}, err
		}
		v.Sort = key
	}
	if raw := q.Get("dir"); raw != "" {
		dir, err := aggregate.ParseDirection(raw)
		if err != nil {
			return View{}, err
		}
		v.Dir = dir
	}
	if raw := q.Get("source"); raw != "" {
		v.Filter.Source = raw
	}
	if raw := q.Get("category"); raw != "" {
		v.Filter.Category = raw
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := intParam(raw, v.Limit)
		if err != nil {
			return View{}, fmt.Errorf("limit: %w", err)
		}
		v.Limit = n
	}
	return v, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func floatParam(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("must be a non-negative number, got %q", raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

type ctxKey struct{}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestID tags each request with an X-Request-ID and logs it.
func withRequestID(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}
