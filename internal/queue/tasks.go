package queue

const (
	TypeSessionCleanup = "session:cleanup"
	TypeAuditPrune     = "audit:prune"
)

type SessionCleanupPayload struct{}

type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}
