package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"wellbeing-backend/internal/alert"
	"wellbeing-backend/internal/classifier_client"
	"wellbeing-backend/internal/config"
	"wellbeing-backend/internal/push_client"
	"wellbeing-backend/internal/repository"
	"wellbeing-backend/internal/scheduler"
	"wellbeing-backend/internal/server"
	"wellbeing-backend/internal/service"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// .env is optional; config falls back to the YAML values
	_ = godotenv.Load()

	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Initialize repositories
	authRepo := repository.NewAuthRepository(db, logger)
	checkInRepo := repository.NewCheckInRepository(db, logger)
	metricRepo := repository.NewHealthMetricRepository(db, logger)
	baselineRepo := repository.NewBaselineRepository(db, logger)
	assessmentRepo := repository.NewAssessmentRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)
	deviceRepo := repository.NewDeviceRepository(db, logger)
	peerRepo := repository.NewPeerRepository(db, logger)

	// Classifier service client
	classifierTimeout := time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second
	classifier := classifier_client.NewClient(cfg.Classifier.URL, classifierTimeout)

	// Push gateway client (optional - degraded mode without it)
	var pusher service.PushGateway
	if cfg.PushGateway.Enabled {
		pusher = push_client.NewClient(cfg.PushGateway.URL, logrus.New())
		logger.Info("Push gateway enabled", zap.String("url", cfg.PushGateway.URL))
	} else {
		logger.Info("Push gateway disabled, device registration will be skipped")
	}

	// Telegram ops alerts for global-tier escalations
	alerter, err := alert.NewTelegramAlerter(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram ops alerts, continuing without them", zap.Error(err))
		alerter = nil
	}

	// Initialize services
	notifyService := service.NewNotifyService(notificationRepo, deviceRepo, pusher, logger)
	authService := service.NewAuthService(authRepo, notifyService, logger)
	checkInService := service.NewCheckInService(checkInRepo, metricRepo, notificationRepo, deviceRepo,
		notifyService, cfg.CooldownDuration(), logger)
	supportService := service.NewSupportService(assessmentRepo, authRepo, peerRepo, notifyService,
		alerter, cfg.WidenAfter(), logger)
	baselineService := service.NewBaselineService(baselineRepo, checkInRepo, metricRepo, classifier,
		cfg.Baseline.WindowDays, cfg.Baseline.MinSamples, classifierTimeout, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, baselineRepo, checkInRepo, metricRepo,
		classifier, supportService, cfg.Recency.WindowDays, classifierTimeout, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Background sweeps
	sched := scheduler.NewScheduler(checkInService, supportService,
		time.Duration(cfg.Scheduler.AvailabilityIntervalSeconds)*time.Second,
		time.Duration(cfg.Scheduler.EscalationIntervalSeconds)*time.Second,
		logger)
	go sched.Run(ctx)

	// Initialize and run the server
	srv := server.NewServer(server.Services{
		Auth:       authService,
		CheckIn:    checkInService,
		Baseline:   baselineService,
		Assessment: assessmentService,
		Support:    supportService,
		Notify:     notifyService,
	}, logger)
	go srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
