// Package ws pushes recomputed timeline views to connected clients.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luftradio/station-timeline/internal/engine"
	"github.com/luftradio/station-timeline/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// Handler streams view snapshots to websocket clients with admission
// control.
type Handler struct {
	engine *engine.Engine
	sem    chan struct{}
}

// NewHandler creates a view-push handler limited to maxConcurrent
// simultaneous clients.
func NewHandler(eng *engine.Engine, maxConcurrent int) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	return &Handler{
		engine: eng,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// ServeHTTP upgrades the connection and streams snapshots until the
// client goes away. Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.ViewClients.Inc()
	defer metrics.ViewClients.Dec()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	sessionID := uuid.NewString()
	slog.Info("view client connected", "session_id", sessionID, "remote", conn.RemoteAddr())

	sub := h.engine.Subscribe()
	defer h.engine.Unsubscribe(sub)

	// Reader only detects close; clients send nothing meaningful.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Seed the client with the current snapshot so it renders without
	// waiting for the next tick.
	if err := conn.WriteJSON(h.engine.Snapshot()); err != nil {
		slog.Info("view client write failed", "session_id", sessionID, "error", err)
		return
	}

	for {
		select {
		case <-closed:
			slog.Info("view client disconnected", "session_id", sessionID)
			return
		case data := <-sub:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Info("view client write failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}
