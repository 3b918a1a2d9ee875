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

// LetterTypeRepository implements port.LetterTypeRepository over sqlite
type LetterTypeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLetterTypeRepository creates a new letter type repository
func NewLetterTypeRepository(db *sql.DB, logger *zap.Logger) port.LetterTypeRepository {
	return &LetterTypeRepository{db: db, logger: logger}
}

func (r *LetterTypeRepository) Create(ctx context.Context, lt *entity.LetterType) error {
	query := `
		INSERT INTO letter_types (id, name, description, is_active)
		VALUES (?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		lt.ID, lt.Name, lt.Description, lt.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create letter type", zap.String("id", lt.ID), zap.Error(err))
		return fmt.Errorf("failed to create letter type: %w", err)
	}
	return nil
}

func (r *LetterTypeRepository) GetActiveByID(ctx context.Context, id string) (*entity.LetterType, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM letter_types
		WHERE id = ? AND is_active = 1
	`

	var lt entity.LetterType
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&lt.ID, &lt.Name, &lt.Description, &lt.IsActive, &lt.CreatedAt, &lt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get letter type", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get letter type: %w", err)
	}
	return &lt, nil
}

func (r *LetterTypeRepository) Update(ctx context.Context, lt *entity.LetterType) (bool, error) {
	query := `
		UPDATE letter_types
		SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, lt.Name, lt.Description, lt.ID)
	if err != nil {
		r.logger.Error("Failed to update letter type", zap.String("id", lt.ID), zap.Error(err))
		return false, fmt.Errorf("failed to update letter type: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *LetterTypeRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE letter_types
		SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate letter type", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to deactivate letter type: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *LetterTypeRepository) List(ctx context.Context, limit, offset int) ([]*entity.LetterType, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM letter_types
		WHERE is_active = 1
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list letter types", zap.Error(err))
		return nil, fmt.Errorf("failed to list letter types: %w", err)
	}
	defer rows.Close()

	var types []*entity.LetterType
	for rows.Next() {
		var lt entity.LetterType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Description, &lt.IsActive, &lt.CreatedAt, &lt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan letter type: %w", err)
		}
		types = append(types, &lt)
	}

	return types, rows.Err()
}

func (r *LetterTypeRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM letter_types WHERE is_active = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count letter types: %w", err)
	}
	return total, nil
}

// Verify interface compliance
var _ port.LetterTypeRepository = (*LetterTypeRepository)(nil)
