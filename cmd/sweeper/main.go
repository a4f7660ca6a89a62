package main

// Periodically reconciles documents stuck in processing, e.g. after an API
// restart dropped their poll goroutines:
//   go run ./cmd/sweeper

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pdfchat-backend/internal/bootstrap"
	"pdfchat-backend/internal/shared/config"
	"pdfchat-backend/internal/shared/telemetry"
)

const defaultSweepIntervalSec = 60

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	interval := time.Duration(envInt("SWEEP_INTERVAL_SECONDS", defaultSweepIntervalSec)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("sweeper started interval=%s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checked, updated, err := app.Tracker.ReconcileAll(ctx)
		if err != nil {
			telemetry.Error("sweeper.sweep_failed", map[string]any{"error": err.Error()})
		} else {
			telemetry.Info("sweeper.sweep_completed", map[string]any{
				"checked": checked,
				"updated": updated,
			})
		}

		select {
		case <-ctx.Done():
			log.Printf("sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
