package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/service"
)

type CheckInHandler interface {
	Submit(c *gin.Context)
	Status(c *gin.Context)
	ResetTimer(c *gin.Context)
	SyncHealthMetric(c *gin.Context)
}

type checkInHandler struct {
	checkInService service.CheckInService
	logger         *zap.Logger
}

func NewCheckInHandler(checkInService service.CheckInService, logger *zap.Logger) CheckInHandler {
	return &checkInHandler{checkInService: checkInService, logger: logger}
}

// Submit handles POST /api/check-in
func (h *checkInHandler) Submit(c *gin.Context) {
	var input models.CheckInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkIn, err := h.checkInService.Submit(c.Request.Context(), currentUserID(c), &input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"check_in": checkIn})
}

// Status handles GET /api/check-in/status
func (h *checkInHandler) Status(c *gin.Context) {
	status, err := h.checkInService.Status(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ResetTimer handles POST /api/check-in/reset-timer
func (h *checkInHandler) ResetTimer(c *gin.Context) {
	if err := h.checkInService.ResetTimer(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Check-in timer reset"})
}

type healthMetricRequest struct {
	Day             *time.Time `json:"day"`
	SleepHours      float64    `json:"sleep_hours"`
	SleepQuality    float64    `json:"sleep_quality"`
	Steps           int64      `json:"steps"`
	ExerciseMinutes int64      `json:"exercise_minutes"`
}

// SyncHealthMetric handles POST /api/health-metrics/sync
func (h *checkInHandler) SyncHealthMetric(c *gin.Context) {
	var req healthMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metric := &models.HealthMetric{
		SleepHours:      req.SleepHours,
		SleepQuality:    req.SleepQuality,
		Steps:           req.Steps,
		ExerciseMinutes: req.ExerciseMinutes,
	}
	if req.Day != nil {
		metric.Day = *req.Day
	}

	if err := h.checkInService.SyncHealthMetric(c.Request.Context(), currentUserID(c), metric); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metric": metric})
}
