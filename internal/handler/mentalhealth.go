package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wellbeing-backend/internal/service"
)

type MentalHealthHandler interface {
	EstablishBaseline(c *gin.Context)
	GetBaseline(c *gin.Context)
	BaselineHistory(c *gin.Context)
	Assess(c *gin.Context)
	AnalyzeRecent(c *gin.Context)
	LatestAssessment(c *gin.Context)
	AssessmentHistory(c *gin.Context)
	ClearAssessments(c *gin.Context)
}

type mentalHealthHandler struct {
	baselineService   service.BaselineService
	assessmentService service.AssessmentService
	logger            *zap.Logger
}

func NewMentalHealthHandler(
	baselineService service.BaselineService,
	assessmentService service.AssessmentService,
	logger *zap.Logger,
) MentalHealthHandler {
	return &mentalHealthHandler{
		baselineService:   baselineService,
		assessmentService: assessmentService,
		logger:            logger,
	}
}

// EstablishBaseline handles POST /api/mental-health/establish-baseline
func (h *mentalHealthHandler) EstablishBaseline(c *gin.Context) {
	profile, err := h.baselineService.Establish(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"baseline": profile})
}

// GetBaseline handles GET /api/mental-health/baseline
func (h *mentalHealthHandler) GetBaseline(c *gin.Context) {
	profile, err := h.baselineService.Active(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"baseline": profile})
}

// BaselineHistory handles GET /api/mental-health/baseline/history?limit=
func (h *mentalHealthHandler) BaselineHistory(c *gin.Context) {
	profiles, err := h.baselineService.History(c.Request.Context(), currentUserID(c), limitParam(c, 20))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"baselines": profiles})
}

// Assess handles POST /api/mental-health/assess
func (h *mentalHealthHandler) Assess(c *gin.Context) {
	assessment, err := h.assessmentService.AssessStandard(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assessment": assessment})
}

// AnalyzeRecent handles POST /api/mental-health/analyze-recent
func (h *mentalHealthHandler) AnalyzeRecent(c *gin.Context) {
	assessment, err := h.assessmentService.AnalyzeRecent(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assessment": assessment})
}

// LatestAssessment handles GET /api/mental-health/assessment
func (h *mentalHealthHandler) LatestAssessment(c *gin.Context) {
	assessment, err := h.assessmentService.Latest(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// AssessmentHistory handles GET /api/mental-health/history?limit=
func (h *mentalHealthHandler) AssessmentHistory(c *gin.Context) {
	assessments, err := h.assessmentService.History(c.Request.Context(), currentUserID(c), limitParam(c, 20))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// ClearAssessments handles POST /api/mental-health/admin/clear-assessments.
// Destructive; the route is admin-gated.
func (h *mentalHealthHandler) ClearAssessments(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.assessmentService.ClearAll(c.Request.Context(), req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assessments cleared"})
}
