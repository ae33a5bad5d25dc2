package event

import "github.com/luftradio/station-timeline/internal/profile"

// HistorySegment is one interval returned by the backfill endpoint. The
// endpoint has shipped both field spellings over time, so both are
// accepted; timestamps may be epoch ms or ISO strings (see Millis).
type HistorySegment struct {
	UserID      string           `json:"userId,omitempty"`
	ID          string           `json:"id,omitempty"`
	StartedAtMs Millis           `json:"startedAtMs,omitempty"`
	StartedAt   Millis           `json:"startedAt,omitempty"`
	EndedAtMs   Millis           `json:"endedAtMs,omitempty"`
	EndedAt     Millis           `json:"endedAt,omitempty"`
	DurationMs  int64            `json:"durationMs,omitempty"`
	Profile     *profile.Profile `json:"profile,omitempty"`
}

// HistoryResponse is the body of GET /history?since=<epochMs>.
type HistoryResponse struct {
	Segments []HistorySegment `json:"segments"`
}

// Interval normalizes the segment to (id, start, end, profile). End is
// derived from duration when absent; a segment with no id or no start
// is unusable and reported via ok=false.
func (h HistorySegment) Interval() (id string, start, end int64, p profile.Profile, ok bool) {
	id = h.UserID
	if id == "" {
		id = h.ID
	}
	start = int64(h.StartedAtMs)
	if start == 0 {
		start = int64(h.StartedAt)
	}
	if id == "" || start == 0 {
		return "", 0, 0, profile.Profile{}, false
	}
	end = int64(h.EndedAtMs)
	if end == 0 {
		end = int64(h.EndedAt)
	}
	if end == 0 && h.DurationMs > 0 {
		end = start + h.DurationMs
	}
	if end != 0 && end < start {
		end = start
	}
	if h.Profile != nil {
		p = *h.Profile
	}
	return id, start, end, p, true
}
