package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/service"
	"github.com/siades/backend/internal/domain/apperr"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/domain/workflow"
)

// stubLetterService returns the configured request or error from every method
type stubLetterService struct {
	req *entity.LetterRequest
	err error
}

func (s *stubLetterService) CreateType(ctx context.Context, input service.CreateLetterTypeInput, actorID string) (*entity.LetterType, error) {
	return &entity.LetterType{ID: uuid.NewString(), Name: input.Name, IsActive: true}, s.err
}

func (s *stubLetterService) UpdateType(ctx context.Context, id string, input service.UpdateLetterTypeInput, actorID string) (*entity.LetterType, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.LetterType{ID: id, IsActive: true}, nil
}

func (s *stubLetterService) DeactivateType(ctx context.Context, id, actorID string) error {
	return s.err
}

func (s *stubLetterService) ListTypes(ctx context.Context, page, limit int) (*service.LetterTypePage, error) {
	return &service.LetterTypePage{}, s.err
}

func (s *stubLetterService) CreateRequest(ctx context.Context, input service.CreateLetterRequestInput, operatorID string) (*entity.LetterRequest, error) {
	return s.req, s.err
}

func (s *stubLetterService) Verify(ctx context.Context, id, operatorID string) (*entity.LetterRequest, error) {
	return s.req, s.err
}

func (s *stubLetterService) Approve(ctx context.Context, id, approverID string) (*entity.LetterRequest, error) {
	return s.req, s.err
}

func (s *stubLetterService) Reject(ctx context.Context, id, actorID, reason string) (*entity.LetterRequest, error) {
	return s.req, s.err
}

func (s *stubLetterService) GetRequest(ctx context.Context, id string) (*entity.LetterRequest, error) {
	return s.req, s.err
}

func (s *stubLetterService) ListRequests(ctx context.Context, query service.RequestListQuery) (*service.LetterRequestPage, error) {
	return &service.LetterRequestPage{}, s.err
}

type stubResidentService struct {
	err error
}

func (s *stubResidentService) Create(ctx context.Context, input service.CreateResidentInput, actorID string) (*entity.Resident, error) {
	return &entity.Resident{ID: uuid.NewString()}, s.err
}

func (s *stubResidentService) GetByID(ctx context.Context, id string) (*entity.Resident, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Resident{ID: id}, nil
}

func (s *stubResidentService) List(ctx context.Context, page, limit int) (*service.ResidentPage, error) {
	return &service.ResidentPage{}, s.err
}

func (s *stubResidentService) RecordDeath(ctx context.Context, id string, eventDate time.Time, actorID string) (*entity.Resident, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Resident{ID: id}, nil
}

func (s *stubResidentService) UpdateDomicile(ctx context.Context, id, domicileStatus string, actorID string) (*entity.Resident, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Resident{ID: id}, nil
}

func (s *stubResidentService) Deactivate(ctx context.Context, id, actorID string) error {
	return s.err
}

type stubStatisticsService struct {
	err error
}

func (s *stubStatisticsService) Summary(ctx context.Context, year int) (*service.StatisticsSummary, error) {
	return &service.StatisticsSummary{Year: year}, s.err
}

func newTestServer(letters service.LetterService) *Server {
	return NewServer(
		DefaultServerConfig(),
		letters,
		&stubResidentService{},
		&stubStatisticsService{},
		zap.NewNop(),
	)
}

func doRequest(srv *Server, method, path, body string, withActor bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withActor {
		req.Header.Set("X-Actor-ID", uuid.NewString())
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubLetterService{})

	w := doRequest(srv, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMissingActorHeader(t *testing.T) {
	srv := newTestServer(&stubLetterService{})

	w := doRequest(srv, http.MethodGet, "/api/letter-requests", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperr.ErrNotFound, http.StatusNotFound},
		{"validation", apperr.ErrValidation, http.StatusBadRequest},
		{"invalid transition", apperr.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"concurrent modification", apperr.ErrConcurrentModification, http.StatusConflict},
		{"conflict", apperr.ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubLetterService{err: tt.err})

			path := "/api/letter-requests/" + uuid.NewString() + "/approve"
			w := doRequest(srv, http.MethodPost, path, "", true)
			assert.Equal(t, tt.want, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUnknownErrorIsOpaque(t *testing.T) {
	srv := newTestServer(&stubLetterService{err: assert.AnError})

	path := "/api/letter-requests/" + uuid.NewString() + "/approve"
	w := doRequest(srv, http.MethodPost, path, "", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestCreateLetterRequest(t *testing.T) {
	id := uuid.NewString()
	srv := newTestServer(&stubLetterService{req: &entity.LetterRequest{
		ID:      id,
		Status:  workflow.StatePending.String(),
		Version: 1,
	}})

	body := `{"letter_type_id":"` + uuid.NewString() + `","resident_id":"` + uuid.NewString() + `","purpose":"keperluan administrasi"}`
	w := doRequest(srv, http.MethodPost, "/api/letter-requests", body, true)
	require.Equal(t, http.StatusCreated, w.Code)

	var got entity.LetterRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, workflow.StatePending.String(), got.Status)
}

func TestRejectRequiresJSONBody(t *testing.T) {
	srv := newTestServer(&stubLetterService{})

	path := "/api/letter-requests/" + uuid.NewString() + "/reject"
	w := doRequest(srv, http.MethodPost, path, "{not json", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaginationRejectsNonNumeric(t *testing.T) {
	srv := newTestServer(&stubLetterService{})

	w := doRequest(srv, http.MethodGet, "/api/letter-requests?page=abc", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/letter-requests?limit=abc", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/letter-requests?page=2&limit=10", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(&stubLetterService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	// Generated when absent
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
