package port

import (
	"context"
	"time"

	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/domain/workflow"
)

// StatusSwap describes a conditional letter-request update. The predicate is
// (ID, FromStatus, FromVersion); the update sets ToStatus, increments the
// version by one, and writes whichever status-specific fields are non-nil.
type StatusSwap struct {
	ID          string
	FromStatus  workflow.State
	FromVersion int64
	ToStatus    workflow.State

	ApprovedAt      *time.Time
	KepalaDesaID    *string
	RejectionReason *string
}

// RequestFilter narrows letter-request listing queries. Zero values mean
// "no constraint".
type RequestFilter struct {
	Status       string
	LetterTypeID string
	ResidentID   string
	OperatorID   string
	KepalaDesaID string
	StartDate    *time.Time
	EndDate      *time.Time
	SortBy       string // created_at or approved_at
	SortDesc     bool
	Limit        int
	Offset       int
}

// LetterRequestRepository is the versioned entity store for letter requests
type LetterRequestRepository interface {
	Create(ctx context.Context, req *entity.LetterRequest) error

	// GetByID returns the request or nil when no row exists
	GetByID(ctx context.Context, id string) (*entity.LetterRequest, error)

	// GetWithSignature returns the request with its digital signature
	// attached when one exists
	GetWithSignature(ctx context.Context, id string) (*entity.LetterRequest, error)

	// CompareAndSwap performs the conditional update described by swap and
	// reports whether a row was updated. False means another transition won
	// the race between the caller's read and this write.
	CompareAndSwap(ctx context.Context, swap StatusSwap) (bool, error)

	List(ctx context.Context, filter RequestFilter) ([]*entity.LetterRequest, error)
	Count(ctx context.Context, filter RequestFilter) (int64, error)

	// CountByTypeAndStatus counts requests of the given type in the given
	// status; used by the letter type deactivation guard
	CountByTypeAndStatus(ctx context.Context, letterTypeID, status string) (int64, error)
}

// LetterTypeRepository defines persistence operations for LetterType
type LetterTypeRepository interface {
	Create(ctx context.Context, lt *entity.LetterType) error

	// GetActiveByID returns the type only if it exists and is active, nil otherwise
	GetActiveByID(ctx context.Context, id string) (*entity.LetterType, error)

	// Update applies name/description changes to an active type and reports
	// whether a row matched
	Update(ctx context.Context, lt *entity.LetterType) (bool, error)

	// Deactivate soft-deletes an active type and reports whether a row matched
	Deactivate(ctx context.Context, id string) (bool, error)

	List(ctx context.Context, limit, offset int) ([]*entity.LetterType, error)
	Count(ctx context.Context) (int64, error)
}

// SignatureRepository defines persistence operations for DigitalSignature.
// Create must surface a uniqueness violation on letter_request_id as
// apperr.ErrConflict.
type SignatureRepository interface {
	Create(ctx context.Context, sig *entity.DigitalSignature) error
	GetByLetterRequestID(ctx context.Context, letterRequestID string) (*entity.DigitalSignature, error)
}

// AuditLogRepository is the append-only audit recorder. Append is always
// called inside the transaction of the mutation it records.
type AuditLogRepository interface {
	Append(ctx context.Context, log *entity.AuditLog) error
	GetByRecordID(ctx context.Context, tableName, recordID string) ([]*entity.AuditLog, error)
}

// ResidentRepository defines persistence operations for Resident
type ResidentRepository interface {
	Create(ctx context.Context, r *entity.Resident) error

	// GetActiveByID returns the resident only if active, nil otherwise
	GetActiveByID(ctx context.Context, id string) (*entity.Resident, error)

	GetByNIK(ctx context.Context, nik string) (*entity.Resident, error)
	UpdateLifeStatus(ctx context.Context, id, lifeStatus string) (bool, error)
	UpdateDomicileStatus(ctx context.Context, id, domicileStatus string) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Resident, error)
	Count(ctx context.Context) (int64, error)
}

// FamilyRepository defines persistence operations for Family
type FamilyRepository interface {
	Create(ctx context.Context, f *entity.Family) error
	GetByID(ctx context.Context, id string) (*entity.Family, error)
}

// PopulationEventRepository defines persistence operations for PopulationEvent
type PopulationEventRepository interface {
	Create(ctx context.Context, ev *entity.PopulationEvent) error
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*entity.PopulationEvent, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
