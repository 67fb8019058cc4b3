package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/service"
)

type NotificationHandler interface {
	RegisterDevice(c *gin.Context)
	List(c *gin.Context)
	MarkRead(c *gin.Context)
}

type notificationHandler struct {
	notifyService service.NotifyService
	logger        *zap.Logger
}

func NewNotificationHandler(notifyService service.NotifyService, logger *zap.Logger) NotificationHandler {
	return &notificationHandler{notifyService: notifyService, logger: logger}
}

// RegisterDevice handles POST /api/notifications/register-device. The
// response reports whether push registration succeeded; a degraded gateway is
// not an error.
func (h *notificationHandler) RegisterDevice(c *gin.Context) {
	var input models.RegisterDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registered, err := h.notifyService.RegisterDevice(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

// List handles GET /api/notifications
func (h *notificationHandler) List(c *gin.Context) {
	notifications, err := h.notifyService.ListForUser(currentUserID(c), limitParam(c, 50))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *notificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifyService.MarkRead(currentUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
