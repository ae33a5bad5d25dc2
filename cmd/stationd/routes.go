package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luftradio/station-timeline/internal/engine"
)

type deps struct {
	eng       *engine.Engine
	wsHandler http.Handler
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/views", d.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("GET /api/timeline", d.handleTimeline)
	mux.HandleFunc("GET /api/bins", d.handleBins)
	mux.HandleFunc("GET /api/leaderboard", d.handleLeaderboard)
	mux.HandleFunc("GET /api/listeners", d.handleListeners)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleTimeline(w http.ResponseWriter, r *http.Request) {
	v := d.eng.Snapshot()
	writeJSON(w, map[string]any{"now": v.Now, "segments": v.Timeline})
}

func (d deps) handleBins(w http.ResponseWriter, r *http.Request) {
	v := d.eng.Snapshot()
	writeJSON(w, v.Bins)
}

// handleLeaderboard serves one rolling window selected with ?window=5m
// (default 5m). Only the configured window set is available.
func (d deps) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("window")
	if label == "" {
		label = "5m"
	}
	if dur, err := time.ParseDuration(label); err == nil {
		label = engine.WindowLabel(dur)
	}
	board, ok := d.eng.Snapshot().Leaderboards[label]
	if !ok {
		http.Error(w, "unknown window", http.StatusBadRequest)
		return
	}
	writeJSON(w, board)
}

func (d deps) handleListeners(w http.ResponseWriter, r *http.Request) {
	v := d.eng.Snapshot()
	writeJSON(w, v.Listeners)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
