package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wellbeing-backend/internal/service"
)

type SupportHandler interface {
	ListBuddyRequests(c *gin.Context)
	ListCommunityRequests(c *gin.Context)
	ListGlobalRequests(c *gin.Context)
	ProvideSupport(c *gin.Context)
}

type supportHandler struct {
	supportService service.SupportService
	logger         *zap.Logger
}

func NewSupportHandler(supportService service.SupportService, logger *zap.Logger) SupportHandler {
	return &supportHandler{supportService: supportService, logger: logger}
}

// ListBuddyRequests handles GET /api/mental-health/buddy-support-requests
func (h *supportHandler) ListBuddyRequests(c *gin.Context) {
	requests, err := h.supportService.ListBuddyRequests(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListCommunityRequests handles GET /api/mental-health/community-support-requests
func (h *supportHandler) ListCommunityRequests(c *gin.Context) {
	requests, err := h.supportService.ListCommunityRequests(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListGlobalRequests handles GET /api/mental-health/global-support-requests
func (h *supportHandler) ListGlobalRequests(c *gin.Context) {
	requests, err := h.supportService.ListGlobalRequests(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ProvideSupport handles POST /api/mental-health/provide-support/:assessmentId
func (h *supportHandler) ProvideSupport(c *gin.Context) {
	assessmentID := c.Param("assessmentId")
	if assessmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment ID required"})
		return
	}

	assessment, err := h.supportService.ProvideSupport(c.Request.Context(), assessmentID, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}
