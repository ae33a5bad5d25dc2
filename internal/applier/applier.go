// Package applier translates inbound transport events into segment
// store operations.
package applier

import (
	"log/slog"
	"time"

	"github.com/luftradio/station-timeline/internal/event"
	"github.com/luftradio/station-timeline/internal/metrics"
	"github.com/luftradio/station-timeline/internal/profile"
	"github.com/luftradio/station-timeline/internal/segment"
)

// Applier owns the current segment collection and applies full
// snapshots, incremental speaking events, and backfill batches to it.
// After every apply the collection is trimmed to the retention window
// and re-sorted, so Segments is always handed out small and ordered.
//
// Applier is not safe for concurrent use; the engine goroutine is its
// only caller.
type Applier struct {
	segments  []segment.Segment
	retention int64
	fallback  int64
}

// New creates an applier with the given retention window and the
// fallback duration used when an end arrives without an observed start.
func New(retention, fallback time.Duration) *Applier {
	return &Applier{
		retention: retention.Milliseconds(),
		fallback:  fallback.Milliseconds(),
	}
}

// Segments returns a copy of the current collection, sorted by start.
func (a *Applier) Segments() []segment.Segment {
	out := make([]segment.Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// ApplyState reconciles the store against an authoritative roster
// snapshot: participants we believed were speaking but are absent or
// muted in the snapshot are closed at now, and every reported speaker
// is ensured open at its reported start. This heals drift after a
// reconnect where incremental events were lost.
func (a *Applier) ApplyState(ev *event.State, now int64) {
	speaking := make(map[string]event.Speaker)
	for _, sp := range ev.Speakers {
		if sp.ID == "" {
			metrics.EventsDropped.WithLabelValues("speaker_missing_id").Inc()
			slog.Warn("snapshot speaker without id, skipped")
			continue
		}
		if sp.IsSpeaking {
			speaking[sp.ID] = sp
		}
	}

	segs := a.segments
	for id := range segment.OpenIDs(segs) {
		if _, still := speaking[id]; still {
			continue
		}
		segs = segment.Close(segs, id, now, profile.Profile{}, false, a.fallback)
	}
	for id, sp := range speaking {
		segs = segment.EnsureOpen(segs, id, sp.StartedAt.Or(now), sp.Profile())
	}

	a.finish(segs, now)
	metrics.EventsApplied.WithLabelValues("state").Inc()
}

// ApplySpeaking applies an incremental start or end notification. An
// end without a locally-known start is valid (the interval may have
// started before this client connected) and synthesizes a bounded
// fallback interval. Malformed events are dropped.
func (a *Applier) ApplySpeaking(ev *event.Speaking, now int64) {
	switch ev.Type {
	case "start":
		if ev.User == nil || ev.User.ID == "" {
			metrics.EventsDropped.WithLabelValues("start_missing_id").Inc()
			slog.Warn("speaking start without user id, dropped")
			return
		}
		segs := segment.EnsureOpen(a.segments, ev.User.ID, ev.User.StartedAt.Or(now), ev.User.Profile())
		a.finish(segs, now)
	case "end":
		id := ev.UserID
		end := int64(0)
		p := profile.Profile{}
		if ev.User != nil {
			if ev.User.ID != "" {
				id = ev.User.ID
			}
			end = int64(ev.User.LastSpokeAt)
			p = ev.User.Profile()
		}
		if id == "" {
			metrics.EventsDropped.WithLabelValues("end_missing_id").Inc()
			slog.Warn("speaking end without user id, dropped")
			return
		}
		if end == 0 {
			end = now
		}
		segs := segment.Close(a.segments, id, end, p, true, a.fallback)
		a.finish(segs, now)
	default:
		metrics.EventsDropped.WithLabelValues("unknown_speaking_type").Inc()
		slog.Warn("speaking event with unknown type, dropped", "type", ev.Type)
		return
	}
	metrics.EventsApplied.WithLabelValues("speaking").Inc()
}

// ApplyHistory merges a backfill batch through the same trim/sort
// pipeline as live events, so a backfill response and a concurrent
// incremental event commute. Open history segments go through
// EnsureOpen; closed ones are added only when no segment for the same
// id already covers part of the interval, so replays of intervals we
// reconstructed live do not double count.
func (a *Applier) ApplyHistory(batch []event.HistorySegment, now int64) {
	segs := a.segments
	applied := 0
	for _, h := range batch {
		id, start, end, p, ok := h.Interval()
		if !ok {
			metrics.EventsDropped.WithLabelValues("history_malformed").Inc()
			continue
		}
		if end == 0 {
			segs = segment.EnsureOpen(segs, id, start, p)
		} else if !hasOverlapping(segs, id, start, end, now) {
			segs = append(segs, segment.Segment{ID: id, Start: start, End: end, Profile: p})
		}
		applied++
	}
	a.finish(segs, now)
	slog.Info("history backfill merged", "segments", applied, "dropped", len(batch)-applied)
	metrics.EventsApplied.WithLabelValues("history").Inc()
}

func (a *Applier) finish(segs []segment.Segment, now int64) {
	trimmed := segment.Trim(segs, now, a.retention)
	if n := len(segs) - len(trimmed); n > 0 {
		metrics.SegmentsTrimmed.Add(float64(n))
	}
	a.segments = segment.Sort(trimmed)
	metrics.SegmentsLive.Set(float64(len(a.segments)))
}

// hasOverlapping reports whether a segment for id already covers part
// of [start, end); replayed backfill rows for intervals we already
// reconstructed live must not be double counted. Open segments count
// too, with effective end now: a closed backfill row overlapping the
// live open segment describes the same speech.
func hasOverlapping(segs []segment.Segment, id string, start, end, now int64) bool {
	for _, s := range segs {
		if s.ID != id {
			continue
		}
		if segment.Overlap(s.Start, s.EffectiveEnd(now), start, end) > 0 {
			return true
		}
	}
	return false
}
