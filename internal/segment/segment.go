// Package segment holds the authoritative in-memory collection of
// speaking intervals and the operations that maintain it.
//
// All operations are pure: they take a segment slice and return a new
// one, never mutating shared state. Callers compose them as
// trim -> mutate -> sort on every inbound event, which keeps the
// collection small and ordered without an index structure.
package segment

import (
	"sort"

	"github.com/luftradio/station-timeline/internal/profile"
)

// Segment is one continuous speaking interval for one participant.
// Times are epoch milliseconds. End == 0 means the segment is open:
// the participant is still speaking.
type Segment struct {
	ID      string          `json:"id"`
	Start   int64           `json:"start"`
	End     int64           `json:"end,omitempty"`
	Profile profile.Profile `json:"profile"`
}

// IsOpen reports whether the segment has no known end yet.
func (s Segment) IsOpen() bool { return s.End == 0 }

// EffectiveEnd returns the segment's end, or now for an open segment.
func (s Segment) EffectiveEnd(now int64) int64 {
	if s.IsOpen() {
		return now
	}
	return s.End
}

// Duration returns the segment's length as of now, in milliseconds.
func (s Segment) Duration(now int64) int64 {
	d := s.EffectiveEnd(now) - s.Start
	if d < 0 {
		return 0
	}
	return d
}

// EnsureOpen returns segments with an open segment for id. If one
// already exists its start is widened to the earlier of the two starts
// and its profile merged; duplicate start notifications (snapshot
// replay after reconnect) therefore never create duplicate intervals.
func EnsureOpen(segments []Segment, id string, start int64, p profile.Profile) []Segment {
	out := clone(segments)
	for i, s := range out {
		if s.ID != id || !s.IsOpen() {
			continue
		}
		if start < s.Start {
			s.Start = start
		}
		s.Profile = profile.Merge(s.Profile, p)
		out[i] = s
		return out
	}
	return append(out, Segment{ID: id, Start: start, Profile: p})
}

// Close closes the open segment for id at end, clamped so that the end
// never precedes the start. When no open segment exists and
// createIfMissing is set, a bounded interval of fallback milliseconds
// ending at end is synthesized; this covers an "end" whose "start" was
// missed during a reconnect gap. Otherwise the call is a no-op.
func Close(segments []Segment, id string, end int64, p profile.Profile, createIfMissing bool, fallback int64) []Segment {
	out := clone(segments)
	for i, s := range out {
		if s.ID != id || !s.IsOpen() {
			continue
		}
		if end < s.Start {
			end = s.Start
		}
		s.End = end
		s.Profile = profile.Merge(s.Profile, p)
		out[i] = s
		return out
	}
	if !createIfMissing {
		return out
	}
	start := end - fallback
	if start < 0 {
		start = 0
	}
	return append(out, Segment{ID: id, Start: start, End: end, Profile: p})
}

// Trim drops segments whose effective end is older than now minus
// retention. Open segments have effective end now and always survive.
func Trim(segments []Segment, now, retention int64) []Segment {
	cutoff := now - retention
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.EffectiveEnd(now) >= cutoff {
			out = append(out, s)
		}
	}
	return out
}

// Sort returns segments stably ordered ascending by start.
func Sort(segments []Segment) []Segment {
	out := clone(segments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// OpenIDs returns the set of participant ids with an open segment.
func OpenIDs(segments []Segment) map[string]bool {
	ids := make(map[string]bool)
	for _, s := range segments {
		if s.IsOpen() {
			ids[s.ID] = true
		}
	}
	return ids
}

// Overlap returns the length of the intersection of [start, end) with
// the window [from, to), never negative.
func Overlap(start, end, from, to int64) int64 {
	if start < from {
		start = from
	}
	if end > to {
		end = to
	}
	if end <= start {
		return 0
	}
	return end - start
}

func clone(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}
