package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luftradio/station-timeline/internal/profile"
	"github.com/luftradio/station-timeline/internal/segment"
)

const now = int64(1_000_000_000)

func TestLeaderboardClipsAndRanks(t *testing.T) {
	window := 5 * time.Minute // 300000 ms
	segs := []segment.Segment{
		{ID: "a", Start: now - 400_000, End: now - 200_000}, // 100s inside window
		{ID: "b", Start: now - 150_000, End: now - 10_000},  // 140s
		{ID: "a", Start: now - 50_000},                      // open, 50s
		{ID: "c", Start: now - 900_000, End: now - 700_000}, // fully outside
	}
	got := Leaderboard(segs, window, now)

	require.Len(t, got.Entries, 2)
	assert.Equal(t, "a", got.Entries[0].ID)
	assert.Equal(t, int64(150_000), got.Entries[0].Duration)
	assert.Equal(t, "b", got.Entries[1].ID)
	assert.Equal(t, int64(140_000), got.Entries[1].Duration)
	assert.Equal(t, int64(290_000), got.Total)
	assert.Equal(t, int64(150_000), got.Max)
	assert.Equal(t, int64(300_000), got.Window)
}

func TestLeaderboardTotalsMatchIndividualClips(t *testing.T) {
	window := time.Minute
	segs := []segment.Segment{
		{ID: "a", Start: now - 90_000, End: now - 30_000},
		{ID: "b", Start: now - 45_000},
		{ID: "a", Start: now - 20_000, End: now - 5_000},
	}
	got := Leaderboard(segs, window, now)

	var want int64
	for _, s := range segs {
		want += segment.Overlap(s.Start, s.EffectiveEnd(now), now-60_000, now)
	}
	assert.Equal(t, want, got.Total)
	for _, e := range got.Entries {
		assert.LessOrEqual(t, e.Duration, window.Milliseconds())
	}
}

func TestLeaderboardDurationNeverExceedsWindow(t *testing.T) {
	// A speaker open since long before the window.
	segs := []segment.Segment{{ID: "a", Start: 0}}
	got := Leaderboard(segs, 5*time.Minute, now)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, int64(300_000), got.Entries[0].Duration)
}

func TestLeaderboardMergesProfilesAcrossSegments(t *testing.T) {
	segs := []segment.Segment{
		{ID: "a", Start: now - 200_000, End: now - 190_000, Profile: profile.Profile{DisplayName: "Old Name", Avatar: "a.png"}},
		{ID: "a", Start: now - 100_000, End: now - 90_000, Profile: profile.Profile{DisplayName: "New Name"}},
	}
	got := Leaderboard(segs, 5*time.Minute, now)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "New Name", got.Entries[0].Profile.DisplayName)
	assert.Equal(t, "a.png", got.Entries[0].Profile.Avatar)
}

func TestLeaderboardDropsZeroDurationParticipants(t *testing.T) {
	segs := []segment.Segment{
		{ID: "quiet", Start: now - 900_000, End: now - 800_000},
		{ID: "active", Start: now - 10_000},
	}
	got := Leaderboard(segs, 5*time.Minute, now)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "active", got.Entries[0].ID)
}

func TestLeaderboardEmpty(t *testing.T) {
	got := Leaderboard(nil, 5*time.Minute, now)
	assert.Empty(t, got.Entries)
	assert.Zero(t, got.Total)
	assert.Zero(t, got.Max)
}
