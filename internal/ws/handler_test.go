package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luftradio/station-timeline/internal/engine"
)

func testEngine() *engine.Engine {
	return engine.New(engine.Config{
		Retention:          6 * time.Hour,
		ListenerRetention:  24 * time.Hour,
		FallbackSegment:    2 * time.Second,
		ListenerWindow:     6 * time.Hour,
		LeaderboardWindows: []time.Duration{5 * time.Minute},
		TickInterval:       time.Hour,
		Location:           time.UTC,
	})
}

func TestHandlerSendsInitialSnapshot(t *testing.T) {
	h := NewHandler(testEngine(), 4)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var v engine.Views
	require.NoError(t, conn.ReadJSON(&v))
	assert.Contains(t, v.Leaderboards, "5m")
}

func TestHandlerRejectsAtCapacity(t *testing.T) {
	h := NewHandler(testEngine(), 1)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()

	// Give the first session time to occupy the slot.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	var v engine.Views
	require.NoError(t, first.ReadJSON(&v))

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
