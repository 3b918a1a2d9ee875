package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/service"
	"github.com/siades/backend/internal/domain/apperr"
)

// Handlers holds HTTP request handlers
type Handlers struct {
	letters    service.LetterService
	residents  service.ResidentService
	statistics service.StatisticsService
	logger     *zap.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(
	letters service.LetterService,
	residents service.ResidentService,
	statistics service.StatisticsService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		letters:    letters,
		residents:  residents,
		statistics: statistics,
		logger:     logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (h *Handlers) CreateLetterType(c *gin.Context) {
	var input service.CreateLetterTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lt, err := h.letters.CreateType(c.Request.Context(), input, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lt)
}

func (h *Handlers) UpdateLetterType(c *gin.Context) {
	var input service.UpdateLetterTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lt, err := h.letters.UpdateType(c.Request.Context(), c.Param("id"), input, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lt)
}

func (h *Handlers) DeleteLetterType(c *gin.Context) {
	err := h.letters.DeactivateType(c.Request.Context(), c.Param("id"), c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ListLetterTypes(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	result, err := h.letters.ListTypes(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) CreateLetterRequest(c *gin.Context) {
	var input service.CreateLetterRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req, err := h.letters.CreateRequest(c.Request.Context(), input, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handlers) GetLetterRequest(c *gin.Context) {
	req, err := h.letters.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handlers) ListLetterRequests(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	query := service.RequestListQuery{
		Page:         page,
		Limit:        limit,
		Status:       c.Query("status"),
		LetterTypeID: c.Query("letter_type_id"),
		ResidentID:   c.Query("resident_id"),
		OperatorID:   c.Query("operator_id"),
		KepalaDesaID: c.Query("kepala_desa_id"),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		query.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		query.EndDate = &t
	}

	result, err := h.letters.ListRequests(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) VerifyLetterRequest(c *gin.Context) {
	req, err := h.letters.Verify(c.Request.Context(), c.Param("id"), c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handlers) ApproveLetterRequest(c *gin.Context) {
	req, err := h.letters.Approve(c.Request.Context(), c.Param("id"), c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

func (h *Handlers) RejectLetterRequest(c *gin.Context) {
	var body rejectRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req, err := h.letters.Reject(c.Request.Context(), c.Param("id"), c.GetString("actor_id"), body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handlers) CreateResident(c *gin.Context) {
	var input service.CreateResidentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resident, err := h.residents.Create(c.Request.Context(), input, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resident)
}

func (h *Handlers) GetResident(c *gin.Context) {
	resident, err := h.residents.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resident)
}

func (h *Handlers) ListResidents(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	result, err := h.residents.List(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type recordDeathBody struct {
	EventDate *time.Time `json:"event_date"`
}

func (h *Handlers) RecordResidentDeath(c *gin.Context) {
	var body recordDeathBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var eventDate time.Time
	if body.EventDate != nil {
		eventDate = *body.EventDate
	}

	resident, err := h.residents.RecordDeath(c.Request.Context(), c.Param("id"), eventDate, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resident)
}

type updateDomicileBody struct {
	DomicileStatus string `json:"domicile_status"`
}

func (h *Handlers) UpdateResidentDomicile(c *gin.Context) {
	var body updateDomicileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resident, err := h.residents.UpdateDomicile(c.Request.Context(), c.Param("id"), body.DomicileStatus, c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resident)
}

func (h *Handlers) DeleteResident(c *gin.Context) {
	err := h.residents.Deactivate(c.Request.Context(), c.Param("id"), c.GetString("actor_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) StatisticsSummary(c *gin.Context) {
	year := 0
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = parsed
	}

	summary, err := h.statistics.Summary(c.Request.Context(), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// respondError maps the domain error kinds to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled service error",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// pagination parses the page and limit query parameters, responding with a
// 400 and returning false on non-numeric input
func pagination(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, 0, false
	}
	return page, limit, true
}
