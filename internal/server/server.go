package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"wellbeing-backend/internal/handler"
	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/service"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// Services bundles the business services the HTTP layer exposes.
type Services struct {
	Auth       service.AuthService
	CheckIn    service.CheckInService
	Baseline   service.BaselineService
	Assessment service.AssessmentService
	Support    service.SupportService
	Notify     service.NotifyService
}

func NewServer(services Services, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	s.setupRoutes(services)

	return s
}

func (s *Server) setupRoutes(services Services) {
	authHandler := handler.NewAuthHandler(services.Auth, s.logger)
	checkInHandler := handler.NewCheckInHandler(services.CheckIn, s.logger)
	mentalHealthHandler := handler.NewMentalHealthHandler(services.Baseline, services.Assessment, s.logger)
	supportHandler := handler.NewSupportHandler(services.Support, s.logger)
	notificationHandler := handler.NewNotificationHandler(services.Notify, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(s.logger))
	{
		authRequired.POST("/auth/logout", authHandler.Logout)

		authRequired.POST("/check-in", checkInHandler.Submit)
		authRequired.GET("/check-in/status", checkInHandler.Status)
		authRequired.POST("/check-in/reset-timer", checkInHandler.ResetTimer)
		authRequired.POST("/health-metrics/sync", checkInHandler.SyncHealthMetric)

		mentalHealth := authRequired.Group("/mental-health")
		mentalHealth.POST("/establish-baseline", mentalHealthHandler.EstablishBaseline)
		mentalHealth.GET("/baseline", mentalHealthHandler.GetBaseline)
		mentalHealth.GET("/baseline/history", mentalHealthHandler.BaselineHistory)
		mentalHealth.POST("/assess", mentalHealthHandler.Assess)
		mentalHealth.POST("/analyze-recent", mentalHealthHandler.AnalyzeRecent)
		mentalHealth.GET("/assessment", mentalHealthHandler.LatestAssessment)
		mentalHealth.GET("/history", mentalHealthHandler.AssessmentHistory)
		mentalHealth.GET("/buddy-support-requests", supportHandler.ListBuddyRequests)
		mentalHealth.GET("/community-support-requests", supportHandler.ListCommunityRequests)
		mentalHealth.GET("/global-support-requests", supportHandler.ListGlobalRequests)
		mentalHealth.POST("/provide-support/:assessmentId", supportHandler.ProvideSupport)

		admin := mentalHealth.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		admin.POST("/clear-assessments", mentalHealthHandler.ClearAssessments)

		notifications := authRequired.Group("/notifications")
		notifications.POST("/register-device", notificationHandler.RegisterDevice)
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))

	handler := cors.Default().Handler(s.router)
	if err := http.ListenAndServe(addr, handler); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
