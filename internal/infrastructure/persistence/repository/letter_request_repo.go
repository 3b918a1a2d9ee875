package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/infrastructure/persistence/sqlite"
)

// LetterRequestRepository implements port.LetterRequestRepository over sqlite
type LetterRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLetterRequestRepository creates a new letter request repository
func NewLetterRequestRepository(db *sql.DB, logger *zap.Logger) port.LetterRequestRepository {
	return &LetterRequestRepository{db: db, logger: logger}
}

const letterRequestColumns = `
	r.id, r.status, r.version, r.letter_type_id, r.resident_id, r.operator_id,
	r.kepala_desa_id, r.purpose, r.approved_at, r.rejection_reason,
	r.created_at, r.updated_at, t.name
`

// Create inserts a new letter request row
func (r *LetterRequestRepository) Create(ctx context.Context, req *entity.LetterRequest) error {
	query := `
		INSERT INTO letter_requests (
			id, status, version, letter_type_id, resident_id, operator_id, purpose
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.Status,
		req.Version,
		req.LetterTypeID,
		req.ResidentID,
		req.OperatorID,
		req.Purpose,
	)
	if err != nil {
		r.logger.Error("Failed to create letter request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create letter request: %w", err)
	}

	return nil
}

// GetByID retrieves a letter request by ID, nil when absent
func (r *LetterRequestRepository) GetByID(ctx context.Context, id string) (*entity.LetterRequest, error) {
	query := `
		SELECT ` + letterRequestColumns + `
		FROM letter_requests r
		JOIN letter_types t ON t.id = r.letter_type_id
		WHERE r.id = ?
	`

	req, err := r.scanOne(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get letter request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get letter request: %w", err)
	}

	return req, nil
}

// GetWithSignature retrieves a letter request with its digital signature attached
func (r *LetterRequestRepository) GetWithSignature(ctx context.Context, id string) (*entity.LetterRequest, error) {
	req, err := r.GetByID(ctx, id)
	if err != nil || req == nil {
		return req, err
	}

	query := `
		SELECT id, letter_request_id, signature_image_ref, document_hash, qr_code_ref, created_at
		FROM digital_signatures
		WHERE letter_request_id = ?
	`

	var sig entity.DigitalSignature
	err = sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&sig.ID,
		&sig.LetterRequestID,
		&sig.SignatureImageRef,
		&sig.DocumentHash,
		&sig.QRCodeRef,
		&sig.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return req, nil
	}
	if err != nil {
		r.logger.Error("Failed to get digital signature", zap.String("letter_request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get digital signature: %w", err)
	}

	req.Signature = &sig
	return req, nil
}

// CompareAndSwap issues the conditional update whose predicate is
// (id, status, version). The version counter, not status alone, is the CAS
// token: among any set of concurrent attempts that read the same version,
// at most one update matches a row. Zero rows affected means the caller
// lost the race.
func (r *LetterRequestRepository) CompareAndSwap(ctx context.Context, swap port.StatusSwap) (bool, error) {
	query := `
		UPDATE letter_requests
		SET status = ?,
			version = version + 1,
			approved_at = COALESCE(?, approved_at),
			kepala_desa_id = COALESCE(?, kepala_desa_id),
			rejection_reason = COALESCE(?, rejection_reason),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND version = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		swap.ToStatus.String(),
		swap.ApprovedAt,
		swap.KepalaDesaID,
		swap.RejectionReason,
		swap.ID,
		swap.FromStatus.String(),
		swap.FromVersion,
	)
	if err != nil {
		r.logger.Error("Failed to execute conditional update",
			zap.String("id", swap.ID),
			zap.String("from_status", swap.FromStatus.String()),
			zap.Int64("from_version", swap.FromVersion),
			zap.Error(err))
		return false, fmt.Errorf("failed to execute conditional update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// List retrieves letter requests matching the filter
func (r *LetterRequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.LetterRequest, error) {
	where, args := buildRequestFilter(filter)

	order := "r.created_at"
	if filter.SortBy == "approved_at" {
		order = "r.approved_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM letter_requests r
		JOIN letter_types t ON t.id = r.letter_type_id
		%s
		ORDER BY %s %s
		LIMIT ? OFFSET ?
	`, letterRequestColumns, where, order, direction)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list letter requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list letter requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.LetterRequest
	for rows.Next() {
		req, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// Count returns the number of letter requests matching the filter
func (r *LetterRequestRepository) Count(ctx context.Context, filter port.RequestFilter) (int64, error) {
	where, args := buildRequestFilter(filter)

	query := "SELECT COUNT(*) FROM letter_requests r " + where

	var total int64
	if err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count letter requests: %w", err)
	}
	return total, nil
}

// CountByTypeAndStatus counts requests of a type in a given status
func (r *LetterRequestRepository) CountByTypeAndStatus(ctx context.Context, letterTypeID, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM letter_requests WHERE letter_type_id = ? AND status = ?`

	var total int64
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, letterTypeID, status).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count letter requests by type: %w", err)
	}
	return total, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *LetterRequestRepository) scanOne(row rowScanner) (*entity.LetterRequest, error) {
	var req entity.LetterRequest
	var kepalaDesaID sql.NullString
	var approvedAt sql.NullTime
	var rejectionReason sql.NullString

	err := row.Scan(
		&req.ID,
		&req.Status,
		&req.Version,
		&req.LetterTypeID,
		&req.ResidentID,
		&req.OperatorID,
		&kepalaDesaID,
		&req.Purpose,
		&approvedAt,
		&rejectionReason,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.LetterTypeName,
	)
	if err != nil {
		return nil, err
	}

	if kepalaDesaID.Valid {
		req.KepalaDesaID = &kepalaDesaID.String
	}
	if approvedAt.Valid {
		req.ApprovedAt = &approvedAt.Time
	}
	if rejectionReason.Valid {
		req.RejectionReason = &rejectionReason.String
	}

	return &req, nil
}

func buildRequestFilter(filter port.RequestFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.Status != "" {
		clauses = append(clauses, "r.status = ?")
		args = append(args, filter.Status)
	}
	if filter.LetterTypeID != "" {
		clauses = append(clauses, "r.letter_type_id = ?")
		args = append(args, filter.LetterTypeID)
	}
	if filter.ResidentID != "" {
		clauses = append(clauses, "r.resident_id = ?")
		args = append(args, filter.ResidentID)
	}
	if filter.OperatorID != "" {
		clauses = append(clauses, "r.operator_id = ?")
		args = append(args, filter.OperatorID)
	}
	if filter.KepalaDesaID != "" {
		clauses = append(clauses, "r.kepala_desa_id = ?")
		args = append(args, filter.KepalaDesaID)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "r.created_at >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "r.created_at <= ?")
		args = append(args, *filter.EndDate)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// Verify interface compliance
var _ port.LetterRequestRepository = (*LetterRequestRepository)(nil)
