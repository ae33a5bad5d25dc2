package aggregate

import (
	"sort"
	"time"

	"github.com/luftradio/station-timeline/internal/profile"
	"github.com/luftradio/station-timeline/internal/segment"
)

// Entry is one participant's accumulated speaking time inside the
// rolling window.
type Entry struct {
	ID       string          `json:"id"`
	Profile  profile.Profile `json:"profile"`
	Duration int64           `json:"duration"`
}

// Board ranks participants by speaking time over a trailing window.
// Total feeds percentage bars; Max scales bars relative to the leader.
type Board struct {
	Window  int64   `json:"window"`
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	Max     int64   `json:"max"`
}

// Leaderboard clips every segment to [now-window, now], accumulates
// duration per participant, and ranks descending. Profiles belonging to
// the same id are merged right-biased in segment order, so the most
// recently learned identity fields win. Tie order between equal
// durations is unspecified (stable sort keeps iteration order).
func Leaderboard(segments []segment.Segment, window time.Duration, now int64) Board {
	w := window.Milliseconds()
	from := now - w

	totals := make(map[string]int64)
	profiles := make(map[string]profile.Profile)
	order := make([]string, 0, len(segments))

	for _, s := range segments {
		if _, seen := totals[s.ID]; !seen {
			order = append(order, s.ID)
		}
		totals[s.ID] += segment.Overlap(s.Start, s.EffectiveEnd(now), from, now)
		profiles[s.ID] = profile.Merge(profiles[s.ID], s.Profile)
	}

	board := Board{Window: w, Entries: make([]Entry, 0, len(order))}
	for _, id := range order {
		d := totals[id]
		if d == 0 {
			continue
		}
		board.Entries = append(board.Entries, Entry{ID: id, Profile: profiles[id], Duration: d})
		board.Total += d
		if d > board.Max {
			board.Max = d
		}
	}
	sort.SliceStable(board.Entries, func(i, j int) bool {
		return board.Entries[i].Duration > board.Entries[j].Duration
	})
	return board
}
