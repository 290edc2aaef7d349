package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rezkam/queuectl/internal/config"
	"github.com/rezkam/queuectl/internal/observability"
	"github.com/rezkam/queuectl/internal/settings"
	"github.com/rezkam/queuectl/internal/store"
	"github.com/rezkam/queuectl/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	providers, err := observability.Init(ctx, cfg.ObservabilityProviders())
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer providers.Shutdown(context.Background())
	if providers.Slog != nil {
		slog.SetDefault(providers.Slog)
	}

	st, err := store.Open(ctx, store.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatalf("failed to open store at %s: %v", cfg.DBPath, err)
	}
	defer st.Close()

	settingsSvc := settings.New(st)

	sup := worker.New(st, settingsSvc,
		worker.WithLeaseTTL(cfg.LeaseTTL),
		worker.WithPollInterval(cfg.PollInterval),
		worker.WithHeartbeatInterval(cfg.HeartbeatInterval),
		worker.WithCommandTimeout(cfg.CommandTimeout),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.InfoContext(ctx, "shutdown signal received, finishing current job before exit",
			"worker_id", sup.WorkerID())
		sup.RequestShutdown()
	}()

	slog.InfoContext(ctx, "worker starting", "worker_id", sup.WorkerID(), "db_path", cfg.DBPath)

	if err := sup.Run(ctx); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}

	slog.InfoContext(ctx, "worker stopped", "worker_id", sup.WorkerID())
}
