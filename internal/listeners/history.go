// Package listeners maintains the listener-count sample history and
// derives the display-ready trend line from it. This pipeline is
// independent of speaking segments: its input is scalar samples and it
// keeps its own, typically longer, retention window.
package listeners

import (
	"math"
	"sort"
	"time"
)

// FallbackSamples is how many of the newest samples the view falls back
// to when the display window holds none (a connectivity gap); the chart
// is never blank while any history exists.
const FallbackSamples = 50

// Sample is one listener-count observation. Count is a rounded,
// non-negative integer.
type Sample struct {
	Timestamp int64 `json:"timestamp"`
	Count     int   `json:"count"`
}

// History is the long-retention backing store: sorted ascending by
// timestamp, one entry per distinct timestamp.
//
// History is not safe for concurrent use; the engine goroutine owns it.
type History struct {
	samples   []Sample
	retention int64
}

// New creates an empty history with the given retention window.
func New(retention time.Duration) *History {
	return &History{retention: retention.Milliseconds()}
}

// Record inserts a sample. Counts are rounded and clamped at zero. When
// amendLast is set the newest sample is replaced instead (the transport
// correcting a value it just sent); amending an empty history appends.
// A sample at an already-known timestamp overwrites that entry.
func (h *History) Record(ts int64, count float64, amendLast bool) {
	s := Sample{Timestamp: ts, Count: roundCount(count)}

	// An amend drops the newest entry and falls through to the sorted
	// insert, so a corrected timestamp that collides with an older
	// sample still leaves one entry per distinct timestamp.
	if amendLast && len(h.samples) > 0 {
		h.samples = h.samples[:len(h.samples)-1]
	}

	i := sort.Search(len(h.samples), func(i int) bool { return h.samples[i].Timestamp >= ts })
	if i < len(h.samples) && h.samples[i].Timestamp == ts {
		h.samples[i] = s
		return
	}
	h.samples = append(h.samples, Sample{})
	copy(h.samples[i+1:], h.samples[i:])
	h.samples[i] = s
}

// Seed merges a backfilled history batch, deduplicating by timestamp.
func (h *History) Seed(samples []Sample) {
	for _, s := range samples {
		h.Record(s.Timestamp, float64(s.Count), false)
	}
}

// Trim drops samples older than now minus the retention window.
func (h *History) Trim(now int64) {
	cutoff := now - h.retention
	i := sort.Search(len(h.samples), func(i int) bool { return h.samples[i].Timestamp >= cutoff })
	if i > 0 {
		h.samples = append([]Sample(nil), h.samples[i:]...)
	}
}

// Samples returns a copy of the full backing store.
func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Len returns the number of retained samples.
func (h *History) Len() int { return len(h.samples) }

func roundCount(c float64) int {
	n := int(math.Round(c))
	if n < 0 {
		return 0
	}
	return n
}
