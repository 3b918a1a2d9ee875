package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/apperr"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/infrastructure/persistence/sqlite"
)

// SignatureRepository implements port.SignatureRepository over sqlite
type SignatureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSignatureRepository creates a new signature repository
func NewSignatureRepository(db *sql.DB, logger *zap.Logger) port.SignatureRepository {
	return &SignatureRepository{db: db, logger: logger}
}

// Create inserts the signature row. The unique index on letter_request_id
// enforces at-most-one signature per request; a violation surfaces as
// apperr.ErrConflict.
func (r *SignatureRepository) Create(ctx context.Context, sig *entity.DigitalSignature) error {
	query := `
		INSERT INTO digital_signatures (
			id, letter_request_id, signature_image_ref, document_hash, qr_code_ref
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		sig.ID,
		sig.LetterRequestID,
		sig.SignatureImageRef,
		sig.DocumentHash,
		sig.QRCodeRef,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: signature already exists for letter request %s",
				apperr.ErrConflict, sig.LetterRequestID)
		}
		r.logger.Error("Failed to create digital signature",
			zap.String("letter_request_id", sig.LetterRequestID), zap.Error(err))
		return fmt.Errorf("failed to create digital signature: %w", err)
	}

	return nil
}

func (r *SignatureRepository) GetByLetterRequestID(ctx context.Context, letterRequestID string) (*entity.DigitalSignature, error) {
	query := `
		SELECT id, letter_request_id, signature_image_ref, document_hash, qr_code_ref, created_at
		FROM digital_signatures
		WHERE letter_request_id = ?
	`

	var sig entity.DigitalSignature
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, letterRequestID).Scan(
		&sig.ID,
		&sig.LetterRequestID,
		&sig.SignatureImageRef,
		&sig.DocumentHash,
		&sig.QRCodeRef,
		&sig.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get digital signature",
			zap.String("letter_request_id", letterRequestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get digital signature: %w", err)
	}

	return &sig, nil
}

// Verify interface compliance
var _ port.SignatureRepository = (*SignatureRepository)(nil)
