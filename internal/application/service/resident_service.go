package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/apperr"
	"github.com/siades/backend/internal/domain/entity"
)

const tableResidents = "residents"

// CreateResidentInput carries the fields for a new resident
type CreateResidentInput struct {
	NIK            string    `json:"nik"`
	FullName       string    `json:"full_name"`
	BirthPlace     string    `json:"birth_place"`
	BirthDate      time.Time `json:"birth_date"`
	Gender         string    `json:"gender"`
	Religion       string    `json:"religion"`
	Education      string    `json:"education"`
	Occupation     string    `json:"occupation"`
	MaritalStatus  string    `json:"marital_status"`
	DomicileStatus string    `json:"domicile_status"`
	Phone          string    `json:"phone"`
	FamilyID       string    `json:"family_id"`
}

// ResidentPage is one page of residents
type ResidentPage struct {
	Data       []*entity.Resident `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// ResidentService manages the resident registry. A plain CRUD collaborator
// of the workflow engine; it shares only the audit recorder and the
// transactional store.
type ResidentService interface {
	Create(ctx context.Context, input CreateResidentInput, actorID string) (*entity.Resident, error)
	GetByID(ctx context.Context, id string) (*entity.Resident, error)
	List(ctx context.Context, page, limit int) (*ResidentPage, error)
	RecordDeath(ctx context.Context, id string, eventDate time.Time, actorID string) (*entity.Resident, error)
	UpdateDomicile(ctx context.Context, id, domicileStatus string, actorID string) (*entity.Resident, error)
	Deactivate(ctx context.Context, id, actorID string) error
}

type residentService struct {
	residents port.ResidentRepository
	families  port.FamilyRepository
	events    port.PopulationEventRepository
	audits    port.AuditLogRepository
	tx        port.TransactionManager
	logger    *zap.Logger
}

// NewResidentService creates a new ResidentService
func NewResidentService(
	residents port.ResidentRepository,
	families port.FamilyRepository,
	events port.PopulationEventRepository,
	audits port.AuditLogRepository,
	tx port.TransactionManager,
	logger *zap.Logger,
) ResidentService {
	return &residentService{
		residents: residents,
		families:  families,
		events:    events,
		audits:    audits,
		tx:        tx,
		logger:    logger,
	}
}

// Create registers a resident, records the birth population event and the
// audit entry in one transaction. A duplicate NIK is a Conflict.
func (s *residentService) Create(ctx context.Context, input CreateResidentInput, actorID string) (*entity.Resident, error) {
	if err := validateNIK(input.NIK); err != nil {
		return nil, err
	}
	if err := validateLength("full_name", input.FullName, 1, 255); err != nil {
		return nil, err
	}
	if err := validateUUID(input.FamilyID); err != nil {
		return nil, err
	}

	family, err := s.families.GetByID(ctx, input.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("%w: family %s", apperr.ErrNotFound, input.FamilyID)
	}

	existing, err := s.residents.GetByNIK(ctx, input.NIK)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: resident with this NIK already exists", apperr.ErrConflict)
	}

	resident := &entity.Resident{
		ID:             uuid.NewString(),
		NIK:            input.NIK,
		FullName:       input.FullName,
		BirthPlace:     input.BirthPlace,
		BirthDate:      input.BirthDate,
		Gender:         input.Gender,
		Religion:       input.Religion,
		Education:      input.Education,
		Occupation:     input.Occupation,
		MaritalStatus:  input.MaritalStatus,
		LifeStatus:     entity.LifeStatusAlive,
		DomicileStatus: input.DomicileStatus,
		Phone:          input.Phone,
		FamilyID:       input.FamilyID,
		IsActive:       true,
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.residents.Create(txCtx, resident); err != nil {
			return err
		}
		if err := s.recordEvent(txCtx, entity.EventTypeBirth, resident.ID, actorID, time.Now().UTC()); err != nil {
			return err
		}
		return s.appendAudit(txCtx, entity.AuditActionCreate, tableResidents, resident.ID, actorID)
	})
	if err != nil {
		return nil, err
	}

	// GetByID maps a vanished row to NotFound instead of a nil entity
	return s.GetByID(ctx, resident.ID)
}

func (s *residentService) GetByID(ctx context.Context, id string) (*entity.Resident, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}

	resident, err := s.residents.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
	}
	return resident, nil
}

func (s *residentService) List(ctx context.Context, page, limit int) (*ResidentPage, error) {
	page, limit, err := normalizePagination(page, limit)
	if err != nil {
		return nil, err
	}

	residents, err := s.residents.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.residents.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &ResidentPage{
		Data:       residents,
		Pagination: paginate(page, limit, total),
	}, nil
}

// RecordDeath marks a resident deceased and records the death event
func (s *residentService) RecordDeath(ctx context.Context, id string, eventDate time.Time, actorID string) (*entity.Resident, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}
	if eventDate.IsZero() {
		eventDate = time.Now().UTC()
	}

	resident, err := s.residents.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
	}
	if resident.LifeStatus == entity.LifeStatusDeceased {
		return nil, fmt.Errorf("%w: resident is already deceased", apperr.ErrValidation)
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		matched, err := s.residents.UpdateLifeStatus(txCtx, id, entity.LifeStatusDeceased)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
		}
		if err := s.recordEvent(txCtx, entity.EventTypeDeath, id, actorID, eventDate); err != nil {
			return err
		}
		return s.appendAudit(txCtx, entity.AuditActionUpdate, tableResidents, id, actorID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// UpdateDomicile changes a resident's domicile status and records the
// matching move_in/move_out population event
func (s *residentService) UpdateDomicile(ctx context.Context, id, domicileStatus string, actorID string) (*entity.Resident, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}

	var eventType string
	switch domicileStatus {
	case entity.DomicileStatusMovedIn:
		eventType = entity.EventTypeMoveIn
	case entity.DomicileStatusMovedOut:
		eventType = entity.EventTypeMoveOut
	case entity.DomicileStatusPermanent:
	default:
		return nil, fmt.Errorf("%w: unknown domicile status %q", apperr.ErrValidation, domicileStatus)
	}

	resident, err := s.residents.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		matched, err := s.residents.UpdateDomicileStatus(txCtx, id, domicileStatus)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
		}
		if eventType != "" {
			if err := s.recordEvent(txCtx, eventType, id, actorID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return s.appendAudit(txCtx, entity.AuditActionUpdate, tableResidents, id, actorID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Deactivate soft-deletes a resident record
func (s *residentService) Deactivate(ctx context.Context, id, actorID string) error {
	if err := validateUUID(id); err != nil {
		return err
	}

	resident, err := s.residents.GetActiveByID(ctx, id)
	if err != nil {
		return err
	}
	if resident == nil {
		return fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		matched, err := s.residents.Deactivate(txCtx, id)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("%w: resident %s", apperr.ErrNotFound, id)
		}
		return s.appendAudit(txCtx, entity.AuditActionDelete, tableResidents, id, actorID)
	})
}

func (s *residentService) recordEvent(ctx context.Context, eventType, residentID, actorID string, eventDate time.Time) error {
	return s.events.Create(ctx, &entity.PopulationEvent{
		ID:          uuid.NewString(),
		EventType:   eventType,
		ResidentID:  residentID,
		CreatedByID: actorID,
		EventDate:   eventDate,
	})
}

func (s *residentService) appendAudit(ctx context.Context, action, tableName, recordID, actorID string) error {
	return s.audits.Append(ctx, &entity.AuditLog{
		ID:         uuid.NewString(),
		Action:     action,
		TableName:  tableName,
		RecordID:   recordID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
}

func validateNIK(nik string) error {
	if len(nik) != 16 {
		return fmt.Errorf("%w: nik must be exactly 16 digits", apperr.ErrValidation)
	}
	for _, c := range nik {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: nik must contain only digits", apperr.ErrValidation)
		}
	}
	return nil
}
