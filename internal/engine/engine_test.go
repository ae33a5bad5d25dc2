package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luftradio/station-timeline/internal/event"
)

func testConfig(now int64) Config {
	return Config{
		Retention:          6 * time.Hour,
		ListenerRetention:  24 * time.Hour,
		FallbackSegment:    2 * time.Second,
		ListenerWindow:     6 * time.Hour,
		LeaderboardWindows: []time.Duration{time.Minute, 5 * time.Minute},
		TickInterval:       time.Hour, // keep ticks out of the way
		Location:           time.UTC,
		Now:                func() time.Time { return time.UnixMilli(now) },
	}
}

func runEngine(t *testing.T, e *Engine) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	return cancel
}

// waitFor polls the snapshot until cond holds, since Apply is async.
func waitFor(t *testing.T, e *Engine, cond func(Views) bool) Views {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v := e.Snapshot()
		if cond(v) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
	return Views{}
}

func TestEngineAppliesSpeakingAndPublishes(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	e.Apply(&event.Speaking{Type: "start", User: &event.SpeakingUser{ID: "u1", StartedAt: event.Millis(now - 30_000)}})

	v := waitFor(t, e, func(v Views) bool { return len(v.Timeline) == 1 })
	assert.Equal(t, "u1", v.Timeline[0].ID)

	board, ok := v.Leaderboards["5m"]
	require.True(t, ok)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, int64(30_000), board.Entries[0].Duration)

	_, ok = v.Leaderboards["1m"]
	assert.True(t, ok)
}

func TestEngineStateSeedsListeners(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	e.Apply(&event.State{
		Speakers: []event.Speaker{{ID: "u1", IsSpeaking: true}},
		Listeners: &event.ListenerState{
			Count:   12,
			History: []event.Sample{{Timestamp: event.Millis(now - 60_000), Count: 9}},
		},
	})

	v := waitFor(t, e, func(v Views) bool { return len(v.Listeners.Samples) == 2 })
	assert.Equal(t, 9, v.Listeners.Samples[0].Count)
	assert.Equal(t, 12, v.Listeners.Samples[1].Count)
	assert.Equal(t, 12, v.Listeners.Max)
}

func TestEngineListenerAmend(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	inserted := true
	amended := false
	e.Apply(&event.Listeners{Count: 5, Entry: &event.Sample{Timestamp: event.Millis(now - 1000), Count: 5}, Inserted: &inserted})
	e.Apply(&event.Listeners{Count: 6, Entry: &event.Sample{Timestamp: event.Millis(now - 900), Count: 6}, Inserted: &amended})

	v := waitFor(t, e, func(v Views) bool {
		return len(v.Listeners.Samples) == 1 && v.Listeners.Samples[0].Count == 6
	})
	assert.Equal(t, now-900, v.Listeners.Samples[0].Timestamp)
}

func TestEngineHistoryBatch(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	e.ApplyHistory([]event.HistorySegment{
		{UserID: "u1", StartedAtMs: event.Millis(now - 120_000), EndedAtMs: event.Millis(now - 60_000)},
	})

	v := waitFor(t, e, func(v Views) bool { return len(v.Timeline) == 1 })
	assert.Equal(t, now-120_000, v.Timeline[0].Start)
}

func TestEngineSubscribeReceivesSnapshots(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	ch := e.Subscribe()
	defer e.Unsubscribe(ch)

	e.Apply(&event.Speaking{Type: "start", User: &event.SpeakingUser{ID: "u1"}})

	select {
	case data := <-ch:
		var v Views
		require.NoError(t, json.Unmarshal(data, &v))
		assert.Len(t, v.Timeline, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot pushed")
	}
}

func TestEngineTracksAvailability(t *testing.T) {
	now := int64(1_000_000_000)
	e := New(testConfig(now))
	defer runEngine(t, e)()

	assert.False(t, e.Snapshot().Available)

	e.Apply(event.ConnStatus{Connected: true})
	v := waitFor(t, e, func(v Views) bool { return v.Available })
	assert.True(t, v.Available)

	e.Apply(event.ConnStatus{Connected: false})
	waitFor(t, e, func(v Views) bool { return !v.Available })
}

func TestWindowLabel(t *testing.T) {
	assert.Equal(t, "1m", WindowLabel(time.Minute))
	assert.Equal(t, "5m", WindowLabel(5*time.Minute))
	assert.Equal(t, "60m", WindowLabel(time.Hour))
}
