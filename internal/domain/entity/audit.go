package entity

import "time"

// Audit actions
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// AuditLog is an append-only record of a committed mutation. One entry per
// mutation, written in the same transaction as the mutation itself.
type AuditLog struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	TableName  string    `json:"table_name"`
	RecordID   string    `json:"record_id"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
