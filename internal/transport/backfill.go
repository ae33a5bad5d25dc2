package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/luftradio/station-timeline/internal/event"
)

// Backfill fetches historical segments from the REST collaborator.
type Backfill struct {
	baseURL   string
	retention time.Duration
	client    *http.Client
	now       func() time.Time
}

// NewBackfill creates a fetcher against baseURL; since is derived from
// the retention window, fetching older segments would only feed the
// trimmer.
func NewBackfill(baseURL string, retention time.Duration, poolSize int) *Backfill {
	return &Backfill{
		baseURL:   baseURL,
		retention: retention,
		client:    newPooledHTTPClient(poolSize, 30*time.Second),
		now:       time.Now,
	}
}

// Fetch retrieves and decodes the whole history response. The response
// is decoded in full before anything is returned, so a cancelled ctx or
// transport failure yields (nil, err) and applies nothing.
func (b *Backfill) Fetch(ctx context.Context) ([]event.HistorySegment, error) {
	since := b.now().Add(-b.retention).UnixMilli()
	u := fmt.Sprintf("%s/history?since=%d", b.baseURL, since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backfill request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backfill fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backfill fetch: unexpected status %d", resp.StatusCode)
	}

	var body event.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("backfill decode: %w", err)
	}
	return body.Segments, nil
}

// newPooledHTTPClient returns an http.Client with connection pooling
// and tuned transport.
func newPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
