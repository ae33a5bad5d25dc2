package main

import (
	"log/slog"
	"time"

	"github.com/luftradio/station-timeline/internal/env"
)

type config struct {
	port              string
	pushURL           string
	historyURL        string
	retention         time.Duration
	listenerRetention time.Duration
	fallbackSegment   time.Duration
	listenerWindow    time.Duration
	tickInterval      time.Duration
	maxViewClients    int
	backfillPoolSize  int
	location          *time.Location
}

// leaderboardWindows is the enumerated set of rolling windows clients
// can rank speakers over.
var leaderboardWindows = []time.Duration{
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

func loadConfig() config {
	loc := time.Local
	if tz := env.Str("STATION_TZ", ""); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			slog.Warn("invalid STATION_TZ, using local time", "tz", tz, "error", err)
		} else {
			loc = l
		}
	}

	return config{
		port:              env.Str("STATIOND_PORT", "8090"),
		pushURL:           env.Str("STATION_PUSH_URL", ""),
		historyURL:        env.Str("STATION_HISTORY_URL", ""),
		retention:         env.Duration("RETENTION_WINDOW", 6*time.Hour),
		listenerRetention: env.Duration("LISTENER_HISTORY_RETENTION", 24*time.Hour),
		fallbackSegment:   env.Duration("FALLBACK_SEGMENT_DURATION", 2*time.Second),
		listenerWindow:    env.Duration("LISTENER_DISPLAY_WINDOW", 6*time.Hour),
		tickInterval:      env.Duration("TICK_INTERVAL", time.Second),
		maxViewClients:    env.Int("MAX_VIEW_CLIENTS", 100),
		backfillPoolSize:  env.Int("BACKFILL_POOL_SIZE", 4),
		location:          loc,
	}
}
