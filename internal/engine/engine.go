// Package engine owns the timeline state and drives view recomputation.
//
// One goroutine processes all inbound events strictly in delivery
// order, so the applier and listener history never see concurrent
// mutation. A periodic tick advances the read-side clock and
// republishes views; it never mutates the store.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/luftradio/station-timeline/internal/aggregate"
	"github.com/luftradio/station-timeline/internal/applier"
	"github.com/luftradio/station-timeline/internal/event"
	"github.com/luftradio/station-timeline/internal/listeners"
	"github.com/luftradio/station-timeline/internal/metrics"
	"github.com/luftradio/station-timeline/internal/segment"
)

// Config carries the tuning constants for the engine.
type Config struct {
	Retention          time.Duration
	ListenerRetention  time.Duration
	FallbackSegment    time.Duration
	ListenerWindow     time.Duration
	LeaderboardWindows []time.Duration
	TickInterval       time.Duration
	Location           *time.Location
	Now                func() time.Time
}

// Views is one immutable published snapshot of every derived view.
// Replaced wholesale on each recompute, never mutated in place.
type Views struct {
	Now          int64                      `json:"now"`
	Available    bool                       `json:"available"`
	Timeline     []segment.Segment          `json:"timeline"`
	Bins         aggregate.DayBins          `json:"bins"`
	Leaderboards map[string]aggregate.Board `json:"leaderboards"`
	Listeners    listeners.View             `json:"listeners"`
}

// historyBatch carries a completed backfill response through the event
// channel so it is serialized with live events.
type historyBatch []event.HistorySegment

// Engine applies events and publishes recomputed views to pull readers
// (Snapshot) and push subscribers (Subscribe).
type Engine struct {
	cfg       Config
	applier   *applier.Applier
	history   *listeners.History
	events    chan any
	connected bool

	mu    sync.RWMutex
	views Views

	subMu sync.Mutex
	subs  map[chan []byte]struct{}
}

// New creates an engine; Run must be called before events flow.
func New(cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	e := &Engine{
		cfg:     cfg,
		applier: applier.New(cfg.Retention, cfg.FallbackSegment),
		history: listeners.New(cfg.ListenerRetention),
		events:  make(chan any, 64),
		subs:    map[chan []byte]struct{}{},
	}
	e.recompute(cfg.Now().UnixMilli())
	return e
}

// Apply queues one decoded transport event for the engine goroutine.
func (e *Engine) Apply(ev any) {
	e.events <- ev
}

// ApplyHistory queues a complete backfill batch. Callers must only pass
// fully decoded responses; an aborted fetch must not reach here.
func (e *Engine) ApplyHistory(batch []event.HistorySegment) {
	e.events <- historyBatch(batch)
}

// Run processes events and ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			e.recompute(t.UnixMilli())
		case ev := <-e.events:
			now := e.cfg.Now().UnixMilli()
			e.apply(ev, now)
			e.recompute(now)
		}
	}
}

func (e *Engine) apply(ev any, now int64) {
	switch ev := ev.(type) {
	case *event.State:
		e.applier.ApplyState(ev, now)
		if ev.Listeners != nil {
			for _, s := range ev.Listeners.History {
				e.history.Record(int64(s.Timestamp), s.Count, false)
			}
			e.history.Record(now, ev.Listeners.Count, false)
			e.history.Trim(now)
		}
	case *event.Speaking:
		e.applier.ApplySpeaking(ev, now)
	case *event.Listeners:
		ts, count := now, ev.Count
		if ev.Entry != nil {
			ts = int64(ev.Entry.Timestamp)
			count = ev.Entry.Count
		}
		amend := ev.Inserted != nil && !*ev.Inserted
		e.history.Record(ts, count, amend)
		e.history.Trim(now)
		metrics.ListenerSamples.Inc()
		metrics.EventsApplied.WithLabelValues("listeners").Inc()
	case historyBatch:
		e.applier.ApplyHistory(ev, now)
	case event.ConnStatus:
		e.connected = ev.Connected
	default:
		metrics.EventsDropped.WithLabelValues("unknown_event").Inc()
		slog.Warn("unhandled event dropped")
	}
}

// recompute rebuilds every view from the current state and publishes
// the snapshot to readers and subscribers.
func (e *Engine) recompute(now int64) {
	segs := e.applier.Segments()

	boards := make(map[string]aggregate.Board, len(e.cfg.LeaderboardWindows))
	for _, w := range e.cfg.LeaderboardWindows {
		boards[WindowLabel(w)] = aggregate.Leaderboard(segs, w, now)
	}

	v := Views{
		Now:          now,
		Available:    e.connected,
		Timeline:     segs,
		Bins:         aggregate.HourlyBins(segs, now, e.cfg.Location),
		Leaderboards: boards,
		Listeners:    e.history.View(e.cfg.ListenerWindow, now),
	}

	e.mu.Lock()
	e.views = v
	e.mu.Unlock()

	e.broadcast(v)
}

// Snapshot returns the most recently published views.
func (e *Engine) Snapshot() Views {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.views
}

// Subscribe registers a push channel for encoded view snapshots.
// Channels have capacity 1 and a non-blocking send: a slow consumer
// misses intermediate snapshots but always gets the latest on next read.
func (e *Engine) Subscribe() chan []byte {
	ch := make(chan []byte, 1)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (e *Engine) Unsubscribe(ch chan []byte) {
	e.subMu.Lock()
	delete(e.subs, ch)
	e.subMu.Unlock()
}

func (e *Engine) broadcast(v Views) {
	e.subMu.Lock()
	n := len(e.subs)
	e.subMu.Unlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode views", "error", err)
		return
	}

	e.subMu.Lock()
	for ch := range e.subs {
		select {
		case ch <- data:
		default:
		}
	}
	e.subMu.Unlock()
}

// WindowLabel renders a leaderboard window as the API label clients
// select with, e.g. "5m" or "60m".
func WindowLabel(d time.Duration) string {
	return strconv.Itoa(int(d.Minutes())) + "m"
}
