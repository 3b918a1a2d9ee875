package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/infrastructure/persistence/sqlite"
)

// AuditLogRepository implements port.AuditLogRepository over sqlite.
// Pure append; no read-modify-write, so no conflict is possible.
type AuditLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Append inserts one audit entry. Always called inside the transaction of
// the mutation it records, so an entry never exists without its committed
// state change.
func (r *AuditLogRepository) Append(ctx context.Context, log *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, action, table_name, record_id, actor_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		log.ID,
		log.Action,
		log.TableName,
		log.RecordID,
		log.ActorID,
		log.OccurredAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit log",
			zap.String("table", log.TableName),
			zap.String("record_id", log.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to append audit log: %w", err)
	}

	return nil
}

// GetByRecordID returns the audit trail for a record, oldest first
func (r *AuditLogRepository) GetByRecordID(ctx context.Context, tableName, recordID string) ([]*entity.AuditLog, error) {
	query := `
		SELECT id, action, table_name, record_id, actor_id, occurred_at
		FROM audit_logs
		WHERE table_name = ? AND record_id = ?
		ORDER BY occurred_at ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, tableName, recordID)
	if err != nil {
		r.logger.Error("Failed to get audit logs", zap.String("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		var log entity.AuditLog
		err := rows.Scan(&log.ID, &log.Action, &log.TableName, &log.RecordID, &log.ActorID, &log.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// Verify interface compliance
var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
