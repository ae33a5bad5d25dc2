// Package transport connects the engine to its external collaborators:
// the station's push channel and the history backfill endpoint.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luftradio/station-timeline/internal/event"
	"github.com/luftradio/station-timeline/internal/metrics"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Sink is where decoded events and backfill batches are delivered; the
// engine satisfies it.
type Sink interface {
	Apply(ev any)
	ApplyHistory(batch []event.HistorySegment)
}

// Client subscribes to the push channel, decodes frames, and feeds the
// sink. On every (re)connect it requests a backfill so the gap since
// the last retained segment is filled; the next full state snapshot
// from the channel then reconciles anything still stale.
type Client struct {
	url      string
	sink     Sink
	backfill *Backfill
	dial     func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewClient creates a push-channel subscriber. backfill may be nil when
// no history endpoint is configured.
func NewClient(url string, sink Sink, backfill *Backfill) *Client {
	return &Client{
		url:      url,
		sink:     sink,
		backfill: backfill,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Run maintains the subscription until ctx is cancelled, reconnecting
// with capped exponential backoff.
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx, c.url)
		if err != nil {
			slog.Warn("push channel dial failed", "url", c.url, "backoff", backoff, "error", err)
			metrics.Reconnects.Inc()
			if !sleep(ctx, backoff) {
				return
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff
		slog.Info("push channel connected", "url", c.url)
		c.sink.Apply(event.ConnStatus{Connected: true})

		if c.backfill != nil {
			go c.requestBackfill(ctx)
		}

		c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		slog.Warn("push channel disconnected, reconnecting")
		c.sink.Apply(event.ConnStatus{Connected: false})
		metrics.Reconnects.Inc()
	}
}

// readLoop decodes frames until the connection drops or ctx ends.
// Malformed frames are dropped and counted; they never stop the loop.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ev, err := event.Decode(data)
		if err != nil {
			if errors.Is(err, event.ErrUnknownType) {
				metrics.EventsDropped.WithLabelValues("unknown_frame").Inc()
				continue
			}
			metrics.EventsDropped.WithLabelValues("malformed").Inc()
			slog.Warn("malformed frame dropped", "error", err)
			continue
		}
		c.sink.Apply(ev)
	}
}

// requestBackfill fetches history since the retention horizon and hands
// the complete batch to the sink. A failed or cancelled fetch delivers
// nothing; partial results never reach the store.
func (c *Client) requestBackfill(ctx context.Context) {
	start := time.Now()
	batch, err := c.backfill.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("history backfill failed", "error", err)
		}
		return
	}
	metrics.BackfillDuration.Observe(time.Since(start).Seconds())
	c.sink.ApplyHistory(batch)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
