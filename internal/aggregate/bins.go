// Package aggregate derives the live analytical views from the segment
// store. Every function here is a pure projection of (segments, now);
// callers re-run them on each tick or event.
package aggregate

import (
	"time"

	"github.com/luftradio/station-timeline/internal/segment"
)

// BinsPerDay is fixed: one-hour bins over local midnight to midnight.
const BinsPerDay = 24

// Bin is one hour of accumulated speaking time.
type Bin struct {
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Duration int64 `json:"duration"`
	Current  bool  `json:"current"`
}

// DayBins is the hourly histogram for the day containing now.
type DayBins struct {
	Bins  []Bin `json:"bins"`
	Total int64 `json:"total"`
	Peak  int64 `json:"peak"`
}

// HourlyBins projects segments onto the 24 one-hour bins of now's day
// in loc. Each segment's [start, effective end) is clipped to each bin
// and the positive overlap accumulated; a segment can therefore span
// bin boundaries without double counting or loss.
func HourlyBins(segments []segment.Segment, now int64, loc *time.Location) DayBins {
	t := time.UnixMilli(now).In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).UnixMilli()
	hour := time.Hour.Milliseconds()

	out := DayBins{Bins: make([]Bin, BinsPerDay)}
	for i := range out.Bins {
		binStart := midnight + int64(i)*hour
		out.Bins[i] = Bin{
			Start:   binStart,
			End:     binStart + hour,
			Current: now >= binStart && now < binStart+hour,
		}
	}

	for _, s := range segments {
		segEnd := s.EffectiveEnd(now)
		for i := range out.Bins {
			b := &out.Bins[i]
			if b.Start >= segEnd {
				break // bins are ordered; nothing later can overlap
			}
			b.Duration += segment.Overlap(s.Start, segEnd, b.Start, b.End)
		}
	}

	for _, b := range out.Bins {
		out.Total += b.Duration
		if b.Duration > out.Peak {
			out.Peak = b.Duration
		}
	}
	return out
}
