package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/core/service"
)

type HTTPHandler struct {
	scheduleService *service.ScheduleService
	logger          *zap.Logger
	now             func() time.Time
}

type CreateScheduleHTTPRequest struct {
	RequestID     string `json:"request_id"`
	ProductID     string `json:"product_id" binding:"required"`
	ScheduledDate string `json:"scheduled_date"`
	Quantity      int    `json:"quantity"`
}

type UpdateStatusHTTPRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewHTTPHandler(scheduleService *service.ScheduleService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{scheduleService: scheduleService, logger: logger, now: time.Now}
}

func (h *HTTPHandler) ListSchedules(c *gin.Context) {
	filter, err := filterParams{
		ScheduledDate: c.Query("scheduledDate"),
		StartDate:     c.Query("startDate"),
		EndDate:       c.Query("endDate"),
		Status:        c.Query("status"),
		Limit:         c.Query("limit"),
		Offset:        c.Query("offset"),
	}.toFilter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedules, err := h.scheduleService.ListSchedules(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScheduleMessages(schedules))
}

func (h *HTTPHandler) GetSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScheduleMessage(*schedule))
}

func (h *HTTPHandler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	date, err := parseScheduledDate(req.ScheduledDate, h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.scheduleService.CreateOrAccumulate(c.Request.Context(), service.ProductionRequest{
		RequestID:     req.RequestID,
		ProductID:     productID.String(),
		ScheduledDate: date,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if schedule.UpdatedAt == nil {
		status = http.StatusCreated
		c.Header("Location", "/api/production-schedules/"+schedule.ID)
	}
	c.JSON(status, toScheduleMessage(*schedule))
}

func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}

	var req UpdateStatusHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	status, err := domain.ParseScheduleStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.scheduleService.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScheduleMessage(*schedule))
}

func (h *HTTPHandler) DeleteSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func scheduleID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return "", false
	}
	return id.String(), true
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrProductHasNoParts):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrScheduleNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, service.ErrScheduleBusy):
		status = http.StatusServiceUnavailable
		message = err.Error()
	default:
		h.logger.Error("schedule request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{"error": message})
}
