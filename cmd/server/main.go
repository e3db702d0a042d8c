package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/orgtree/internal/api"
	"github.com/dgallion1/orgtree/internal/config"
	"github.com/dgallion1/orgtree/internal/pipeline"
	"github.com/dgallion1/orgtree/internal/session"
	"github.com/dgallion1/orgtree/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot store is optional; without it sessions live in memory only.
	var (
		snapshots session.SnapshotStore
		reports   pipeline.ReportStore
		redis     *session.RedisSnapshots
	)
	if cfg.RedisURL != "" {
		var err error
		redis, err = session.NewRedisSnapshots(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		snapshots, reports = redis, redis
	}

	sessions := session.NewManager(cfg.SessionTTL, snapshots, log)
	go sessions.Run(ctx, 5*time.Minute)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, sessions, reports, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, sessions, stats.NewMutationStats(time.Hour), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if redis != nil {
			redis.Close()
		}
	}()

	log.Info("starting orgtree", "port", cfg.Port, "snapshots", cfg.RedisURL != "", "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
