package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Update is pushed to browsers after each refresh.
type Update struct {
	Type        string    `json:"type"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Hub refreshes the row set on an interval and notifies connected browsers.
type Hub struct {
	pipeline *Pipeline
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub that refreshes every interval.
func NewHub(pipeline *Pipeline, interval time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start begins the refresh loop.
func (h *Hub) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.run(ctx)
}

// Stop ends the refresh loop and closes every client.
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) run(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *Hub) refresh(ctx context.Context) {
	if h.Clients() == 0 {
		return
	}
	rows, at, err := h.pipeline.Refresh(ctx)
	if err != nil {
		h.logger.Warn("live refresh failed", "error", err)
		return
	}
	h.Broadcast(Update{Type: "markets", Total: len(rows), GeneratedAt: at.UTC()})
}

// Broadcast sends msg to every client, dropping clients that fail.
func (h *Hub) Broadcast(msg Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Debug("dropping live client", "remote", c.RemoteAddr(), "error", err)
			c.Close()
			delete(h.clients, c)
		}
	}
}

// ServeHTTP upgrades the request and holds the connection until the
// browser goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("live client connected", "clients", n)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
