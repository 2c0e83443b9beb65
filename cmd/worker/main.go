package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/config"
	"github.com/capturedeck/capturedeck/internal/database"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/queue"
	"github.com/capturedeck/capturedeck/internal/queue/workers"
	"github.com/capturedeck/capturedeck/internal/session"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	clk := clock.New()
	orgStore := org.NewPostgresStore(db)
	sessions := session.NewService(session.NewPostgresStore(db), orgStore, clk, cfg.Auth.SessionTTL, cfg.Auth.RefreshThreshold)
	audits := audit.NewService(db)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	})

	registry := queue.NewHandlersRegistry()

	sessionCleanup := workers.NewSessionCleanupWorker(sessions)
	auditPrune := workers.NewAuditPruneWorker(audits)

	registry.Register(queue.TypeSessionCleanup, asynq.HandlerFunc(sessionCleanup.ProcessTask))
	registry.Register(queue.TypeAuditPrune, asynq.HandlerFunc(auditPrune.ProcessTask))

	scheduler := asynq.NewScheduler(redisOpt, nil)

	cleanupPayload, _ := json.Marshal(queue.SessionCleanupPayload{})
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(queue.TypeSessionCleanup, cleanupPayload)); err != nil {
		slog.Error("failed to schedule session cleanup", "error", err)
		os.Exit(1)
	}

	prunePayload, _ := json.Marshal(queue.AuditPrunePayload{RetentionDays: 90})
	if _, err := scheduler.Register("@every 24h", asynq.NewTask(queue.TypeAuditPrune, prunePayload)); err != nil {
		slog.Error("failed to schedule audit prune", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
