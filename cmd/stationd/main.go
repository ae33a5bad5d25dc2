package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luftradio/station-timeline/internal/engine"
	"github.com/luftradio/station-timeline/internal/transport"
	"github.com/luftradio/station-timeline/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	eng := engine.New(engine.Config{
		Retention:          cfg.retention,
		ListenerRetention:  cfg.listenerRetention,
		FallbackSegment:    cfg.fallbackSegment,
		ListenerWindow:     cfg.listenerWindow,
		LeaderboardWindows: leaderboardWindows,
		TickInterval:       cfg.tickInterval,
		Location:           cfg.location,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	if cfg.pushURL != "" {
		var backfill *transport.Backfill
		if cfg.historyURL != "" {
			backfill = transport.NewBackfill(cfg.historyURL, cfg.retention, cfg.backfillPoolSize)
		}
		client := transport.NewClient(cfg.pushURL, eng, backfill)
		go client.Run(ctx)
	} else {
		slog.Warn("STATION_PUSH_URL unset, no live events will arrive")
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		eng:       eng,
		wsHandler: ws.NewHandler(eng, cfg.maxViewClients),
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("stationd starting", "addr", addr, "retention", cfg.retention.String(), "push_url", cfg.pushURL)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("stationd stopped")
}
