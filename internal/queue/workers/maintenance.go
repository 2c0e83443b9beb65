package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/queue"
	"github.com/capturedeck/capturedeck/internal/session"
)

// SessionCleanupWorker purges expired session rows. Expiry is enforced
// lazily at read time; this sweep just keeps the table from growing.
type SessionCleanupWorker struct {
	sessions *session.Service
}

func NewSessionCleanupWorker(sessions *session.Service) *SessionCleanupWorker {
	return &SessionCleanupWorker{sessions: sessions}
}

func (w *SessionCleanupWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	n, err := w.sessions.CleanupExpired(ctx)
	if err != nil {
		slog.Error("session cleanup failed", "error", err)
		return err
	}
	slog.Info("session cleanup complete", "deleted", n)
	return nil
}

type AuditPruneWorker struct {
	audits *audit.Service
}

func NewAuditPruneWorker(audits *audit.Service) *AuditPruneWorker {
	return &AuditPruneWorker{audits: audits}
}

func (w *AuditPruneWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 90
	}

	cutoff := time.Now().AddDate(0, 0, -payload.RetentionDays)
	n, err := w.audits.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("audit prune failed", "error", err)
		return err
	}
	slog.Info("audit prune complete", "deleted", n, "cutoff", cutoff)
	return nil
}
