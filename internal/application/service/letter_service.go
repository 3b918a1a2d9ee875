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
	"github.com/siades/backend/internal/domain/workflow"
)

// Audited table names
const (
	tableLetterTypes    = "letter_types"
	tableLetterRequests = "letter_requests"
)

// CreateLetterTypeInput carries the fields for a new letter type
type CreateLetterTypeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateLetterTypeInput carries partial letter type changes
type UpdateLetterTypeInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// CreateLetterRequestInput carries the fields for a new letter request
type CreateLetterRequestInput struct {
	LetterTypeID string `json:"letter_type_id"`
	ResidentID   string `json:"resident_id"`
	Purpose      string `json:"purpose"`
}

// RequestListQuery narrows and pages letter request listings
type RequestListQuery struct {
	Page         int
	Limit        int
	Status       string
	LetterTypeID string
	ResidentID   string
	OperatorID   string
	KepalaDesaID string
	StartDate    *time.Time
	EndDate      *time.Time
	SortBy       string
	SortOrder    string
}

// Pagination describes one page of a listing result
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// LetterRequestPage is one page of letter requests
type LetterRequestPage struct {
	Data       []*entity.LetterRequest `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

// LetterTypePage is one page of letter types
type LetterTypePage struct {
	Data       []*entity.LetterType `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// LetterService drives letter requests through the approval workflow and
// manages the letter type registry. Every transition runs as one atomic unit:
// conditional status update, side effects, audit entry, commit.
type LetterService interface {
	CreateType(ctx context.Context, input CreateLetterTypeInput, actorID string) (*entity.LetterType, error)
	UpdateType(ctx context.Context, id string, input UpdateLetterTypeInput, actorID string) (*entity.LetterType, error)
	DeactivateType(ctx context.Context, id, actorID string) error
	ListTypes(ctx context.Context, page, limit int) (*LetterTypePage, error)

	CreateRequest(ctx context.Context, input CreateLetterRequestInput, operatorID string) (*entity.LetterRequest, error)
	Verify(ctx context.Context, id, operatorID string) (*entity.LetterRequest, error)
	Approve(ctx context.Context, id, approverID string) (*entity.LetterRequest, error)
	Reject(ctx context.Context, id, actorID, reason string) (*entity.LetterRequest, error)
	GetRequest(ctx context.Context, id string) (*entity.LetterRequest, error)
	ListRequests(ctx context.Context, query RequestListQuery) (*LetterRequestPage, error)
}

type letterService struct {
	requests  port.LetterRequestRepository
	types     port.LetterTypeRepository
	residents port.ResidentRepository
	audits    port.AuditLogRepository
	issuer    SignatureIssuer
	tx        port.TransactionManager
	logger    *zap.Logger
}

// NewLetterService creates a new LetterService
func NewLetterService(
	requests port.LetterRequestRepository,
	types port.LetterTypeRepository,
	residents port.ResidentRepository,
	audits port.AuditLogRepository,
	issuer SignatureIssuer,
	tx port.TransactionManager,
	logger *zap.Logger,
) LetterService {
	return &letterService{
		requests:  requests,
		types:     types,
		residents: residents,
		audits:    audits,
		issuer:    issuer,
		tx:        tx,
		logger:    logger,
	}
}

func (s *letterService) CreateType(ctx context.Context, input CreateLetterTypeInput, actorID string) (*entity.LetterType, error) {
	if err := validateLength("name", input.Name, 3, 100); err != nil {
		return nil, err
	}
	if input.Description != "" {
		if err := validateLength("description", input.Description, 0, 255); err != nil {
			return nil, err
		}
	}

	lt := &entity.LetterType{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.types.Create(txCtx, lt); err != nil {
			return err
		}
		return s.appendAudit(txCtx, entity.AuditActionCreate, tableLetterTypes, lt.ID, actorID)
	})
	if err != nil {
		return nil, err
	}

	return s.readBackType(ctx, lt.ID)
}

func (s *letterService) UpdateType(ctx context.Context, id string, input UpdateLetterTypeInput, actorID string) (*entity.LetterType, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := validateLength("name", *input.Name, 3, 100); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		if err := validateLength("description", *input.Description, 0, 255); err != nil {
			return nil, err
		}
	}

	existing, err := s.types.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, id)
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		matched, err := s.types.Update(txCtx, existing)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, id)
		}
		return s.appendAudit(txCtx, entity.AuditActionUpdate, tableLetterTypes, id, actorID)
	})
	if err != nil {
		return nil, err
	}

	return s.readBackType(ctx, id)
}

// readBackType re-reads a type after its transaction committed. A concurrent
// deactivation between commit and re-read surfaces as NotFound rather than a
// nil entity.
func (s *letterService) readBackType(ctx context.Context, id string) (*entity.LetterType, error) {
	lt, err := s.types.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, id)
	}
	return lt, nil
}

// DeactivateType soft-deletes a letter type. Deactivation is blocked while
// any approved request references the type; the count check is a plain
// read-then-decide since mistaken deactivation is reversible and has no
// destructive side effect.
func (s *letterService) DeactivateType(ctx context.Context, id, actorID string) error {
	if err := validateUUID(id); err != nil {
		return err
	}

	existing, err := s.types.GetActiveByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, id)
	}

	approved, err := s.requests.CountByTypeAndStatus(ctx, id, workflow.StateApproved.String())
	if err != nil {
		return err
	}
	if approved > 0 {
		return fmt.Errorf("%w: letter type is used in approved requests", apperr.ErrValidation)
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		matched, err := s.types.Deactivate(txCtx, id)
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, id)
		}
		return s.appendAudit(txCtx, entity.AuditActionDelete, tableLetterTypes, id, actorID)
	})
}

func (s *letterService) ListTypes(ctx context.Context, page, limit int) (*LetterTypePage, error) {
	page, limit, err := normalizePagination(page, limit)
	if err != nil {
		return nil, err
	}

	types, err := s.types.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.types.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &LetterTypePage{
		Data:       types,
		Pagination: paginate(page, limit, total),
	}, nil
}

// CreateRequest registers a new letter request in pending status at version 1.
// The letter type must exist and be active at this moment; it is not
// re-validated by later transitions.
func (s *letterService) CreateRequest(ctx context.Context, input CreateLetterRequestInput, operatorID string) (*entity.LetterRequest, error) {
	if err := validateUUID(input.LetterTypeID); err != nil {
		return nil, err
	}
	if err := validateUUID(input.ResidentID); err != nil {
		return nil, err
	}
	if err := validateLength("purpose", input.Purpose, 5, 255); err != nil {
		return nil, err
	}

	letterType, err := s.types.GetActiveByID(ctx, input.LetterTypeID)
	if err != nil {
		return nil, err
	}
	if letterType == nil {
		return nil, fmt.Errorf("%w: letter type %s", apperr.ErrNotFound, input.LetterTypeID)
	}

	resident, err := s.residents.GetActiveByID(ctx, input.ResidentID)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, fmt.Errorf("%w: resident %s", apperr.ErrNotFound, input.ResidentID)
	}

	req := &entity.LetterRequest{
		ID:           uuid.NewString(),
		Status:       workflow.StatePending.String(),
		Version:      1,
		LetterTypeID: input.LetterTypeID,
		ResidentID:   input.ResidentID,
		OperatorID:   operatorID,
		Purpose:      input.Purpose,
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return err
		}
		return s.appendAudit(txCtx, entity.AuditActionCreate, tableLetterRequests, req.ID, operatorID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Letter request created",
		zap.String("id", req.ID),
		zap.String("letter_type_id", req.LetterTypeID),
		zap.String("operator_id", operatorID))

	return s.GetRequest(ctx, req.ID)
}

// Verify moves a pending request to verified
func (s *letterService) Verify(ctx context.Context, id, operatorID string) (*entity.LetterRequest, error) {
	return s.transition(ctx, id, operatorID, workflow.TriggerVerify, nil, nil)
}

// Approve moves a verified request to approved, stamps the approver and
// approval time, and issues the digital signature in the same transaction.
func (s *letterService) Approve(ctx context.Context, id, approverID string) (*entity.LetterRequest, error) {
	mutate := func(swap *port.StatusSwap) {
		now := time.Now().UTC()
		swap.ApprovedAt = &now
		swap.KepalaDesaID = &approverID
	}
	sideEffect := func(txCtx context.Context) error {
		_, err := s.issuer.Issue(txCtx, id)
		return err
	}
	return s.transition(ctx, id, approverID, workflow.TriggerApprove, mutate, sideEffect)
}

// Reject moves a pending or verified request to rejected with a reason.
// Only the rejection reason is stamped on the row; the acting user is
// recorded in the audit entry.
func (s *letterService) Reject(ctx context.Context, id, actorID, reason string) (*entity.LetterRequest, error) {
	if err := validateLength("reason", reason, 3, 255); err != nil {
		return nil, err
	}

	mutate := func(swap *port.StatusSwap) {
		swap.RejectionReason = &reason
	}
	return s.transition(ctx, id, actorID, workflow.TriggerReject, mutate, nil)
}

// transition executes the optimistic-concurrency transition protocol:
// read {status, version}, check legality locally, issue the conditional
// update keyed on (id, status, version), run side effects, append the audit
// entry. All of it inside one transaction; any failure rolls back the whole
// attempt. Zero rows updated means another transition won the race and is
// surfaced as ConcurrentModification, never retried here.
func (s *letterService) transition(
	ctx context.Context,
	id, actorID string,
	trigger workflow.Trigger,
	mutate func(*port.StatusSwap),
	sideEffect func(context.Context) error,
) (*entity.LetterRequest, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.requests.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: letter request %s", apperr.ErrNotFound, id)
		}

		next, err := workflow.Next(workflow.State(current.Status), trigger)
		if err != nil {
			return err
		}

		swap := port.StatusSwap{
			ID:          id,
			FromStatus:  workflow.State(current.Status),
			FromVersion: current.Version,
			ToStatus:    next,
		}
		if mutate != nil {
			mutate(&swap)
		}

		updated, err := s.requests.CompareAndSwap(txCtx, swap)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: letter request %s", apperr.ErrConcurrentModification, id)
		}

		if sideEffect != nil {
			if err := sideEffect(txCtx); err != nil {
				return err
			}
		}

		return s.appendAudit(txCtx, entity.AuditActionUpdate, tableLetterRequests, id, actorID)
	})
	if err != nil {
		s.logger.Warn("Letter request transition failed",
			zap.String("id", id),
			zap.String("trigger", trigger.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Letter request transitioned",
		zap.String("id", id),
		zap.String("trigger", trigger.String()),
		zap.String("actor_id", actorID))

	return s.GetRequest(ctx, id)
}

func (s *letterService) GetRequest(ctx context.Context, id string) (*entity.LetterRequest, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}

	req, err := s.requests.GetWithSignature(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: letter request %s", apperr.ErrNotFound, id)
	}
	return req, nil
}

func (s *letterService) ListRequests(ctx context.Context, query RequestListQuery) (*LetterRequestPage, error) {
	page, limit, err := normalizePagination(query.Page, query.Limit)
	if err != nil {
		return nil, err
	}

	if query.Status != "" && !workflow.State(query.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, query.Status)
	}

	sortBy := query.SortBy
	switch sortBy {
	case "":
		sortBy = "created_at"
	case "created_at", "approved_at":
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", apperr.ErrValidation, query.SortBy)
	}

	sortDesc := true
	switch query.SortOrder {
	case "", "desc":
	case "asc":
		sortDesc = false
	default:
		return nil, fmt.Errorf("%w: unknown sort order %q", apperr.ErrValidation, query.SortOrder)
	}

	filter := port.RequestFilter{
		Status:       query.Status,
		LetterTypeID: query.LetterTypeID,
		ResidentID:   query.ResidentID,
		OperatorID:   query.OperatorID,
		KepalaDesaID: query.KepalaDesaID,
		StartDate:    query.StartDate,
		EndDate:      query.EndDate,
		SortBy:       sortBy,
		SortDesc:     sortDesc,
		Limit:        limit,
		Offset:       (page - 1) * limit,
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.requests.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &LetterRequestPage{
		Data:       requests,
		Pagination: paginate(page, limit, total),
	}, nil
}

func (s *letterService) appendAudit(ctx context.Context, action, tableName, recordID, actorID string) error {
	return s.audits.Append(ctx, &entity.AuditLog{
		ID:         uuid.NewString(),
		Action:     action,
		TableName:  tableName,
		RecordID:   recordID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
}
