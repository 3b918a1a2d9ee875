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

// FamilyRepository implements port.FamilyRepository over sqlite
type FamilyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *sql.DB, logger *zap.Logger) port.FamilyRepository {
	return &FamilyRepository{db: db, logger: logger}
}

func (r *FamilyRepository) Create(ctx context.Context, f *entity.Family) error {
	query := `
		INSERT INTO families (id, no_kk, address, rt, rw, dusun)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.NoKK, f.Address, f.RT, f.RW, f.Dusun,
	)
	if err != nil {
		r.logger.Error("Failed to create family", zap.String("id", f.ID), zap.Error(err))
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

func (r *FamilyRepository) GetByID(ctx context.Context, id string) (*entity.Family, error) {
	query := `SELECT id, no_kk, address, rt, rw, dusun, created_at FROM families WHERE id = ?`

	var f entity.Family
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.NoKK, &f.Address, &f.RT, &f.RW, &f.Dusun, &f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get family", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return &f, nil
}

// Verify interface compliance
var _ port.FamilyRepository = (*FamilyRepository)(nil)
