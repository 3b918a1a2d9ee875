package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/apperr"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/domain/workflow"
)

// In-memory store shared by the mock repositories. CompareAndSwap holds the
// store mutex for the whole check-and-apply, mirroring the serialization the
// database provides for the conditional update.
type memStore struct {
	mu         sync.Mutex
	requests   map[string]*entity.LetterRequest
	signatures map[string]*entity.DigitalSignature // keyed by letter request id
	audits     []*entity.AuditLog
	types      map[string]*entity.LetterType
	residents  map[string]*entity.Resident

	// When set, readBarrier forces all concurrent transition attempts to
	// finish their status/version read before any of them writes, so every
	// attempt observes the same version.
	readBarrier *sync.WaitGroup
}

func newMemStore() *memStore {
	return &memStore{
		requests:   make(map[string]*entity.LetterRequest),
		signatures: make(map[string]*entity.DigitalSignature),
		types:      make(map[string]*entity.LetterType),
		residents:  make(map[string]*entity.Resident),
	}
}

func (s *memStore) auditCount(tableName, recordID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.audits {
		if a.TableName == tableName && a.RecordID == recordID {
			n++
		}
	}
	return n
}

type memRequests struct{ s *memStore }

func (m memRequests) Create(ctx context.Context, req *entity.LetterRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *req
	cp.CreatedAt = time.Now().UTC()
	m.s.requests[req.ID] = &cp
	return nil
}

func (m memRequests) GetByID(ctx context.Context, id string) (*entity.LetterRequest, error) {
	m.s.mu.Lock()
	var cp *entity.LetterRequest
	if r, ok := m.s.requests[id]; ok {
		c := *r
		cp = &c
	}
	barrier := m.s.readBarrier
	m.s.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return cp, nil
}

func (m memRequests) GetWithSignature(ctx context.Context, id string) (*entity.LetterRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	if sig, ok := m.s.signatures[id]; ok {
		sc := *sig
		cp.Signature = &sc
	}
	return &cp, nil
}

func (m memRequests) CompareAndSwap(ctx context.Context, swap port.StatusSwap) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.requests[swap.ID]
	if !ok {
		return false, nil
	}
	if r.Status != swap.FromStatus.String() || r.Version != swap.FromVersion {
		return false, nil
	}

	r.Status = swap.ToStatus.String()
	r.Version++
	if swap.ApprovedAt != nil {
		r.ApprovedAt = swap.ApprovedAt
	}
	if swap.KepalaDesaID != nil {
		r.KepalaDesaID = swap.KepalaDesaID
	}
	if swap.RejectionReason != nil {
		r.RejectionReason = swap.RejectionReason
	}
	return true, nil
}

func (m memRequests) List(ctx context.Context, filter port.RequestFilter) ([]*entity.LetterRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.LetterRequest
	for _, r := range m.s.requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m memRequests) Count(ctx context.Context, filter port.RequestFilter) (int64, error) {
	list, _ := m.List(ctx, filter)
	return int64(len(list)), nil
}

func (m memRequests) CountByTypeAndStatus(ctx context.Context, letterTypeID, status string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, r := range m.s.requests {
		if r.LetterTypeID == letterTypeID && r.Status == status {
			n++
		}
	}
	return n, nil
}

type memTypes struct{ s *memStore }

func (m memTypes) Create(ctx context.Context, lt *entity.LetterType) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *lt
	m.s.types[lt.ID] = &cp
	return nil
}

func (m memTypes) GetActiveByID(ctx context.Context, id string) (*entity.LetterType, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	lt, ok := m.s.types[id]
	if !ok || !lt.IsActive {
		return nil, nil
	}
	cp := *lt
	return &cp, nil
}

func (m memTypes) Update(ctx context.Context, lt *entity.LetterType) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.types[lt.ID]
	if !ok || !existing.IsActive {
		return false, nil
	}
	existing.Name = lt.Name
	existing.Description = lt.Description
	return true, nil
}

func (m memTypes) Deactivate(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	lt, ok := m.s.types[id]
	if !ok || !lt.IsActive {
		return false, nil
	}
	lt.IsActive = false
	return true, nil
}

func (m memTypes) List(ctx context.Context, limit, offset int) ([]*entity.LetterType, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.LetterType
	for _, lt := range m.s.types {
		if lt.IsActive {
			cp := *lt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memTypes) Count(ctx context.Context) (int64, error) {
	list, _ := m.List(ctx, 0, 0)
	return int64(len(list)), nil
}

type memSignatures struct{ s *memStore }

func (m memSignatures) Create(ctx context.Context, sig *entity.DigitalSignature) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.signatures[sig.LetterRequestID]; exists {
		return fmt.Errorf("%w: signature already exists for letter request %s",
			apperr.ErrConflict, sig.LetterRequestID)
	}
	cp := *sig
	m.s.signatures[sig.LetterRequestID] = &cp
	return nil
}

func (m memSignatures) GetByLetterRequestID(ctx context.Context, letterRequestID string) (*entity.DigitalSignature, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sig, ok := m.s.signatures[letterRequestID]
	if !ok {
		return nil, nil
	}
	cp := *sig
	return &cp, nil
}

type memAudits struct{ s *memStore }

func (m memAudits) Append(ctx context.Context, log *entity.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *log
	m.s.audits = append(m.s.audits, &cp)
	return nil
}

func (m memAudits) GetByRecordID(ctx context.Context, tableName, recordID string) ([]*entity.AuditLog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.AuditLog
	for _, a := range m.s.audits {
		if a.TableName == tableName && a.RecordID == recordID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memResidents struct{ s *memStore }

func (m memResidents) Create(ctx context.Context, r *entity.Resident) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.residents {
		if existing.NIK == r.NIK {
			return fmt.Errorf("%w: resident with NIK %s already exists", apperr.ErrConflict, r.NIK)
		}
	}
	cp := *r
	m.s.residents[r.ID] = &cp
	return nil
}

func (m memResidents) GetActiveByID(ctx context.Context, id string) (*entity.Resident, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.residents[id]
	if !ok || !r.IsActive {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m memResidents) GetByNIK(ctx context.Context, nik string) (*entity.Resident, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.residents {
		if r.NIK == nik {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memResidents) UpdateLifeStatus(ctx context.Context, id, lifeStatus string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.residents[id]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.LifeStatus = lifeStatus
	return true, nil
}

func (m memResidents) UpdateDomicileStatus(ctx context.Context, id, domicileStatus string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.residents[id]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.DomicileStatus = domicileStatus
	return true, nil
}

func (m memResidents) Deactivate(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.residents[id]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	return true, nil
}

func (m memResidents) List(ctx context.Context, limit, offset int) ([]*entity.Resident, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.Resident
	for _, r := range m.s.residents {
		if r.IsActive {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memResidents) Count(ctx context.Context) (int64, error) {
	list, _ := m.List(ctx, 0, 0)
	return int64(len(list)), nil
}

type memTx struct{}

func (memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Test fixture

type fixture struct {
	store      *memStore
	service    LetterService
	typeID     string
	residentID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()

	typeID := uuid.NewString()
	store.types[typeID] = &entity.LetterType{
		ID: typeID, Name: "Surat Keterangan Domisili", IsActive: true,
	}

	residentID := uuid.NewString()
	store.residents[residentID] = &entity.Resident{
		ID: residentID, NIK: "3201010000000001", FullName: "Budi Santoso",
		LifeStatus: entity.LifeStatusAlive, IsActive: true,
	}

	logger := zap.NewNop()
	signatures := memSignatures{s: store}
	issuer := NewSignatureIssuer(signatures, "/signatures", "/qrcodes", logger)

	svc := NewLetterService(
		memRequests{s: store},
		memTypes{s: store},
		memResidents{s: store},
		memAudits{s: store},
		issuer,
		memTx{},
		logger,
	)

	return &fixture{store: store, service: svc, typeID: typeID, residentID: residentID}
}

// seedRequest inserts a request directly in the given status and version
func (f *fixture) seedRequest(status string, version int64) string {
	id := uuid.NewString()
	f.store.requests[id] = &entity.LetterRequest{
		ID:           id,
		Status:       status,
		Version:      version,
		LetterTypeID: f.typeID,
		ResidentID:   f.residentID,
		OperatorID:   uuid.NewString(),
		Purpose:      "keperluan administrasi",
		CreatedAt:    time.Now().UTC(),
	}
	return id
}

func (f *fixture) requestState(id string) (string, int64) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r := f.store.requests[id]
	return r.Status, r.Version
}

// Tests

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	operatorID := uuid.NewString()

	req, err := f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: f.typeID,
		ResidentID:   f.residentID,
		Purpose:      "pengurusan KTP baru",
	}, operatorID)

	require.NoError(t, err)
	assert.Equal(t, workflow.StatePending.String(), req.Status)
	assert.Equal(t, int64(1), req.Version)
	assert.Equal(t, operatorID, req.OperatorID)
	assert.Nil(t, req.Signature)
	assert.Equal(t, 1, f.store.auditCount(tableLetterRequests, req.ID))
}

func TestCreateRequest_ValidatesInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input CreateLetterRequestInput
	}{
		{"bad letter type id", CreateLetterRequestInput{LetterTypeID: "nope", ResidentID: f.residentID, Purpose: "valid purpose"}},
		{"bad resident id", CreateLetterRequestInput{LetterTypeID: f.typeID, ResidentID: "nope", Purpose: "valid purpose"}},
		{"purpose too short", CreateLetterRequestInput{LetterTypeID: f.typeID, ResidentID: f.residentID, Purpose: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateRequest(context.Background(), tt.input, uuid.NewString())
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateRequest_UnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: uuid.NewString(),
		ResidentID:   f.residentID,
		Purpose:      "valid purpose",
	}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: f.typeID,
		ResidentID:   uuid.NewString(),
		Purpose:      "valid purpose",
	}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateRequest_InactiveType(t *testing.T) {
	f := newFixture(t)
	f.store.types[f.typeID].IsActive = false

	_, err := f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: f.typeID,
		ResidentID:   f.residentID,
		Purpose:      "valid purpose",
	}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyThenApprove_VersionMonotonic(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(workflow.StatePending.String(), 1)

	verified, err := f.service.Verify(context.Background(), id, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, workflow.StateVerified.String(), verified.Status)
	assert.Equal(t, int64(2), verified.Version)

	approverID := uuid.NewString()
	approved, err := f.service.Approve(context.Background(), id, approverID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved.String(), approved.Status)
	assert.Equal(t, int64(3), approved.Version)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.KepalaDesaID)
	assert.Equal(t, approverID, *approved.KepalaDesaID)
	require.NotNil(t, approved.Signature)
	assert.Equal(t, id, approved.Signature.LetterRequestID)
}

func TestReject_StampsReasonOnly(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(workflow.StateVerified.String(), 2)

	rejected, err := f.service.Reject(context.Background(), id, uuid.NewString(), "data tidak lengkap")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected.String(), rejected.Status)
	assert.Equal(t, int64(3), rejected.Version)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "data tidak lengkap", *rejected.RejectionReason)
	assert.Nil(t, rejected.KepalaDesaID)
	assert.Nil(t, rejected.ApprovedAt)
	assert.Nil(t, rejected.Signature)
}

func TestReject_ValidatesReason(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(workflow.StatePending.String(), 1)

	_, err := f.service.Reject(context.Background(), id, uuid.NewString(), "no")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	status, version := f.requestState(id)
	assert.Equal(t, workflow.StatePending.String(), status)
	assert.Equal(t, int64(1), version)
}

func TestTransition_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Verify(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Every illegal (status, action) pair fails with InvalidTransition and leaves
// status, version and the audit trail untouched.
func TestTransition_IllegalPairsLeaveStateUnchanged(t *testing.T) {
	type op func(svc LetterService, id string) error
	verify := func(svc LetterService, id string) error {
		_, err := svc.Verify(context.Background(), id, uuid.NewString())
		return err
	}
	approve := func(svc LetterService, id string) error {
		_, err := svc.Approve(context.Background(), id, uuid.NewString())
		return err
	}
	reject := func(svc LetterService, id string) error {
		_, err := svc.Reject(context.Background(), id, uuid.NewString(), "alasan penolakan")
		return err
	}

	tests := []struct {
		name   string
		status string
		op     op
	}{
		{"verify from verified", workflow.StateVerified.String(), verify},
		{"verify from approved", workflow.StateApproved.String(), verify},
		{"verify from rejected", workflow.StateRejected.String(), verify},
		{"approve from pending", workflow.StatePending.String(), approve},
		{"approve from approved", workflow.StateApproved.String(), approve},
		{"approve from rejected", workflow.StateRejected.String(), approve},
		{"reject from approved", workflow.StateApproved.String(), reject},
		{"reject from rejected", workflow.StateRejected.String(), reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.seedRequest(tt.status, 4)

			err := tt.op(f.service, id)
			assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

			status, version := f.requestState(id)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, int64(4), version)
			assert.Equal(t, 0, f.store.auditCount(tableLetterRequests, id))
		})
	}
}

// Terminal states stay immutable regardless of how many attempts are made.
func TestTerminalImmutability(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(workflow.StateApproved.String(), 3)

	for i := 0; i < 5; i++ {
		_, err := f.service.Verify(context.Background(), id, uuid.NewString())
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		_, err = f.service.Approve(context.Background(), id, uuid.NewString())
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		_, err = f.service.Reject(context.Background(), id, uuid.NewString(), "alasan penolakan")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}

	status, version := f.requestState(id)
	assert.Equal(t, workflow.StateApproved.String(), status)
	assert.Equal(t, int64(3), version)
}

// N concurrent approves on the same verified request: exactly one wins, the
// rest lose the CAS, and exactly one signature exists afterwards.
func TestConcurrentApprove_ExactlyOneWinner(t *testing.T) {
	const n = 16

	f := newFixture(t)
	id := f.seedRequest(workflow.StateVerified.String(), 2)

	barrier := &sync.WaitGroup{}
	barrier.Add(n)
	f.store.readBarrier = barrier

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(context.Background(), id, uuid.NewString())
		}(i)
	}
	wg.Wait()
	f.store.readBarrier = nil

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperr.ErrConcurrentModification):
			conflicts++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	status, version := f.requestState(id)
	assert.Equal(t, workflow.StateApproved.String(), status)
	assert.Equal(t, int64(3), version)

	f.store.mu.Lock()
	assert.Len(t, f.store.signatures, 1)
	f.store.mu.Unlock()

	// Exactly one audit entry for the single committed transition
	assert.Equal(t, 1, f.store.auditCount(tableLetterRequests, id))
}

// Approves racing rejects: exactly one of them commits; a signature exists
// only when the approve won.
func TestConcurrentApproveVersusReject(t *testing.T) {
	const approvers, rejecters = 8, 8

	f := newFixture(t)
	id := f.seedRequest(workflow.StateVerified.String(), 2)

	barrier := &sync.WaitGroup{}
	barrier.Add(approvers + rejecters)
	f.store.readBarrier = barrier

	errs := make([]error, approvers+rejecters)
	var wg sync.WaitGroup
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(context.Background(), id, uuid.NewString())
		}(i)
	}
	for i := 0; i < rejecters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[approvers+i] = f.service.Reject(context.Background(), id, uuid.NewString(), "kalah cepat")
		}(i)
	}
	wg.Wait()
	f.store.readBarrier = nil

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !errors.Is(err, apperr.ErrConcurrentModification) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, 1, successes)

	status, version := f.requestState(id)
	assert.Equal(t, int64(3), version)

	f.store.mu.Lock()
	signatureCount := len(f.store.signatures)
	f.store.mu.Unlock()

	switch status {
	case workflow.StateApproved.String():
		assert.Equal(t, 1, signatureCount)
	case workflow.StateRejected.String():
		assert.Equal(t, 0, signatureCount)
	default:
		t.Fatalf("final status %q is not terminal", status)
	}

	assert.Equal(t, 1, f.store.auditCount(tableLetterRequests, id))
}

func TestCreateType(t *testing.T) {
	f := newFixture(t)

	lt, err := f.service.CreateType(context.Background(), CreateLetterTypeInput{
		Name:        "Surat Keterangan Usaha",
		Description: "untuk pengajuan izin usaha mikro",
	}, uuid.NewString())

	require.NoError(t, err)
	assert.True(t, lt.IsActive)
	assert.Equal(t, 1, f.store.auditCount(tableLetterTypes, lt.ID))
}

func TestCreateType_NameTooShort(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateType(context.Background(), CreateLetterTypeInput{Name: "ab"}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeactivateType_BlockedByApprovedRequests(t *testing.T) {
	f := newFixture(t)
	f.seedRequest(workflow.StateApproved.String(), 3)

	err := f.service.DeactivateType(context.Background(), f.typeID, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrValidation)

	lt, err := f.service.ListTypes(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, lt.Data, 1)
}

func TestDeactivateType_AllowedWithoutApprovedRequests(t *testing.T) {
	f := newFixture(t)
	f.seedRequest(workflow.StateRejected.String(), 2)

	err := f.service.DeactivateType(context.Background(), f.typeID, uuid.NewString())
	require.NoError(t, err)

	lt, err := f.service.ListTypes(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, lt.Data, 0)

	// The seeded type was never created through the service, so the
	// deactivation entry is the only one on its trail
	assert.Equal(t, 1, f.store.auditCount(tableLetterTypes, f.typeID))
}

func TestGetRequest_IncludesSignature(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(workflow.StateVerified.String(), 2)

	_, err := f.service.Approve(context.Background(), id, uuid.NewString())
	require.NoError(t, err)

	req, err := f.service.GetRequest(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, req.Signature)
	assert.NotEmpty(t, req.Signature.DocumentHash)
	assert.Contains(t, req.Signature.SignatureImageRef, "/signatures/")
	assert.Contains(t, req.Signature.QRCodeRef, "/qrcodes/")
}

func TestCreateRequest_MultibytePurposeCountsCharacters(t *testing.T) {
	f := newFixture(t)

	// 5 characters but 10 bytes; a byte count would reject more than 255
	// bytes of multibyte text well under the character limit
	purpose := strings.Repeat("é", 5)
	req, err := f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: f.typeID,
		ResidentID:   f.residentID,
		Purpose:      purpose,
	}, uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, purpose, req.Purpose)

	_, err = f.service.CreateRequest(context.Background(), CreateLetterRequestInput{
		LetterTypeID: f.typeID,
		ResidentID:   f.residentID,
		Purpose:      strings.Repeat("é", 256),
	}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// vanishingTypes hides the type again after the first read, simulating a
// concurrent deactivation between a committed update and its re-read
type vanishingTypes struct {
	memTypes
	reads int
}

func (m *vanishingTypes) GetActiveByID(ctx context.Context, id string) (*entity.LetterType, error) {
	m.reads++
	if m.reads > 1 {
		return nil, nil
	}
	return m.memTypes.GetActiveByID(ctx, id)
}

func TestUpdateType_DeactivatedBeforeReadBack(t *testing.T) {
	store := newMemStore()
	typeID := uuid.NewString()
	store.types[typeID] = &entity.LetterType{
		ID: typeID, Name: "Surat Keterangan Domisili", IsActive: true,
	}

	logger := zap.NewNop()
	issuer := NewSignatureIssuer(memSignatures{s: store}, "/signatures", "/qrcodes", logger)
	svc := NewLetterService(
		memRequests{s: store},
		&vanishingTypes{memTypes: memTypes{s: store}},
		memResidents{s: store},
		memAudits{s: store},
		issuer,
		memTx{},
		logger,
	)

	name := "Surat Keterangan Usaha"
	lt, err := svc.UpdateType(context.Background(), typeID, UpdateLetterTypeInput{Name: &name}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, lt)
}

func TestListRequests_RejectsUnknownSort(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ListRequests(context.Background(), RequestListQuery{SortBy: "purpose"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.service.ListRequests(context.Background(), RequestListQuery{Status: "draft"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
