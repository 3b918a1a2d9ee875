package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/siades/backend/internal/domain/apperr"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid UUID format", apperr.ErrValidation)
	}
	return nil
}

// validateLength bounds the character count, not the byte count
func validateLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return fmt.Errorf("%w: %s must be at least %d characters", apperr.ErrValidation, field, min)
	}
	if length > max {
		return fmt.Errorf("%w: %s must be at most %d characters", apperr.ErrValidation, field, max)
	}
	return nil
}

// normalizePagination applies the defaults (page 1, limit 20) and rejects
// out-of-range values
func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", apperr.ErrValidation)
	}
	if limit < 1 || limit > maxPageLimit {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", apperr.ErrValidation, maxPageLimit)
	}
	return page, limit, nil
}

func paginate(page, limit int, total int64) Pagination {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
