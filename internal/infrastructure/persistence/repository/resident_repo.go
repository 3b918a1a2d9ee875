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

// ResidentRepository implements port.ResidentRepository over sqlite
type ResidentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResidentRepository creates a new resident repository
func NewResidentRepository(db *sql.DB, logger *zap.Logger) port.ResidentRepository {
	return &ResidentRepository{db: db, logger: logger}
}

const residentColumns = `
	id, nik, full_name, birth_place, birth_date, gender, religion, education,
	occupation, marital_status, life_status, domicile_status, phone, family_id,
	is_active, created_at, updated_at
`

func (r *ResidentRepository) Create(ctx context.Context, res *entity.Resident) error {
	query := `
		INSERT INTO residents (
			id, nik, full_name, birth_place, birth_date, gender, religion,
			education, occupation, marital_status, life_status, domicile_status,
			phone, family_id, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		res.ID, res.NIK, res.FullName, res.BirthPlace, res.BirthDate,
		res.Gender, res.Religion, res.Education, res.Occupation,
		res.MaritalStatus, res.LifeStatus, res.DomicileStatus,
		res.Phone, res.FamilyID, res.IsActive,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: resident with NIK %s already exists", apperr.ErrConflict, res.NIK)
		}
		r.logger.Error("Failed to create resident", zap.String("id", res.ID), zap.Error(err))
		return fmt.Errorf("failed to create resident: %w", err)
	}
	return nil
}

func (r *ResidentRepository) GetActiveByID(ctx context.Context, id string) (*entity.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = ? AND is_active = 1`

	res, err := scanResident(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get resident", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return res, nil
}

func (r *ResidentRepository) GetByNIK(ctx context.Context, nik string) (*entity.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE nik = ?`

	res, err := scanResident(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, nik))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get resident by NIK", zap.Error(err))
		return nil, fmt.Errorf("failed to get resident by NIK: %w", err)
	}
	return res, nil
}

func (r *ResidentRepository) UpdateLifeStatus(ctx context.Context, id, lifeStatus string) (bool, error) {
	return r.update(ctx, id,
		`UPDATE residents SET life_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1`,
		lifeStatus, id)
}

func (r *ResidentRepository) UpdateDomicileStatus(ctx context.Context, id, domicileStatus string) (bool, error) {
	return r.update(ctx, id,
		`UPDATE residents SET domicile_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1`,
		domicileStatus, id)
}

func (r *ResidentRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	return r.update(ctx, id,
		`UPDATE residents SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1`,
		id)
}

func (r *ResidentRepository) List(ctx context.Context, limit, offset int) ([]*entity.Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE is_active = 1
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list residents", zap.Error(err))
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	var residents []*entity.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		residents = append(residents, res)
	}

	return residents, rows.Err()
}

func (r *ResidentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM residents WHERE is_active = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count residents: %w", err)
	}
	return total, nil
}

func (r *ResidentRepository) update(ctx context.Context, id, query string, args ...interface{}) (bool, error) {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update resident", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update resident: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanResident(row rowScanner) (*entity.Resident, error) {
	var res entity.Resident
	var phone sql.NullString

	err := row.Scan(
		&res.ID, &res.NIK, &res.FullName, &res.BirthPlace, &res.BirthDate,
		&res.Gender, &res.Religion, &res.Education, &res.Occupation,
		&res.MaritalStatus, &res.LifeStatus, &res.DomicileStatus,
		&phone, &res.FamilyID, &res.IsActive, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Phone = phone.String
	return &res, nil
}

// Verify interface compliance
var _ port.ResidentRepository = (*ResidentRepository)(nil)
