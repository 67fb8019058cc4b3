package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"
)

type CheckInService interface {
	Submit(ctx context.Context, userID int64, input *models.CheckInInput) (*models.CheckIn, error)
	Status(ctx context.Context, userID int64) (*models.CadenceStatus, error)
	ResetTimer(ctx context.Context, userID int64) error
	SyncHealthMetric(ctx context.Context, userID int64, metric *models.HealthMetric) error
	SweepAvailability(ctx context.Context)
}

type checkInService struct {
	checkInRepo      repository.CheckInRepository
	metricRepo       repository.HealthMetricRepository
	notificationRepo repository.NotificationRepository
	deviceRepo       repository.DeviceRepository
	notifier         NotifyService
	cooldown         time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

func NewCheckInService(
	checkInRepo repository.CheckInRepository,
	metricRepo repository.HealthMetricRepository,
	notificationRepo repository.NotificationRepository,
	deviceRepo repository.DeviceRepository,
	notifier NotifyService,
	cooldown time.Duration,
	logger *zap.Logger,
) CheckInService {
	return &checkInService{
		checkInRepo:      checkInRepo,
		metricRepo:       metricRepo,
		notificationRepo: notificationRepo,
		deviceRepo:       deviceRepo,
		notifier:         notifier,
		cooldown:         cooldown,
		logger:           logger,
		now:              time.Now,
	}
}

func validateCheckIn(input *models.CheckInInput) error {
	if input.Mood.Score < 1 || input.Mood.Score > 5 {
		return fmt.Errorf("%w: mood score must be between 1 and 5", ErrValidation)
	}
	for _, activity := range input.Activities {
		if activity.Type == "" {
			return fmt.Errorf("%w: activity type is required", ErrValidation)
		}
		switch activity.Level {
		case models.ActivityLevelLow, models.ActivityLevelModerate, models.ActivityLevelHigh:
		default:
			return fmt.Errorf("%w: activity level must be low, moderate or high", ErrValidation)
		}
	}
	return nil
}

// Submit validates and persists a check-in, then updates the notification and
// device bookkeeping. The check-in itself must succeed even when the
// notification subsystem fails.
func (s *checkInService) Submit(ctx context.Context, userID int64, input *models.CheckInInput) (*models.CheckIn, error) {
	if err := validateCheckIn(input); err != nil {
		return nil, err
	}

	now := s.now()

	latest, err := s.checkInRepo.GetLatestCheckIn(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest check-in: %w", err)
	}
	if latest != nil && now.Sub(latest.Timestamp) < s.cooldown {
		return nil, fmt.Errorf("%w: check-in cooldown is still active", ErrConflict)
	}

	activitiesRaw, err := json.Marshal(input.Activities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activities: %w", err)
	}

	checkIn := &models.CheckIn{
		ID:              uuid.NewString(),
		UserID:          userID,
		Timestamp:       now,
		MoodScore:       input.Mood.Score,
		MoodLabel:       input.Mood.Label,
		MoodDescription: input.Mood.Description,
		ActivitiesRaw:   activitiesRaw,
		Notes:           input.Notes,
	}

	if err := s.checkInRepo.SaveCheckIn(checkIn); err != nil {
		return nil, fmt.Errorf("failed to save check-in: %w", err)
	}

	// Consume any pending availability notification before anything else can
	// create a fresh one.
	if err := s.notificationRepo.MarkReadByTitle(userID, models.TitleCheckInAvailable); err != nil {
		s.logger.Warn("Failed to clear availability notifications", zap.Int64("user_id", userID), zap.Error(err))
	}

	if err := s.deviceRepo.SetCooldown(userID, true, &now); err != nil {
		s.logger.Warn("Failed to set device cooldown flags", zap.Int64("user_id", userID), zap.Error(err))
	}

	if _, err := s.notifier.Schedule(ctx, userID, models.TitleCheckInRecorded,
		"Thanks for checking in. See you tomorrow!",
		models.NotificationData{Type: models.NotificationTypeWellness}); err != nil {
		s.logger.Warn("Failed to schedule check-in confirmation", zap.Int64("user_id", userID), zap.Error(err))
	}

	return checkIn, nil
}

// Status computes cadence availability and, when the user is eligible,
// ensures exactly one unread availability notification exists.
func (s *checkInService) Status(ctx context.Context, userID int64) (*models.CadenceStatus, error) {
	latest, err := s.checkInRepo.GetLatestCheckIn(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest check-in: %w", err)
	}

	now := s.now()

	if latest == nil {
		// Fresh user: eligible immediately, but only announce once per flag
		// validity window.
		if !s.notifier.HasShown(userID, models.FlagCheckInAvailable) {
			s.ensureAvailabilityNotification(ctx, userID)
		}
		return &models.CadenceStatus{CanCheckIn: true}, nil
	}

	if now.Sub(latest.Timestamp) < s.cooldown {
		next := latest.Timestamp.Add(s.cooldown)
		if err := s.deviceRepo.SetCooldown(userID, true, &latest.Timestamp); err != nil {
			s.logger.Warn("Failed to set device cooldown flags", zap.Int64("user_id", userID), zap.Error(err))
		}
		return &models.CadenceStatus{CanCheckIn: false, NextCheckInTime: &next}, nil
	}

	if err := s.deviceRepo.SetCooldown(userID, false, nil); err != nil {
		s.logger.Warn("Failed to clear device cooldown flags", zap.Int64("user_id", userID), zap.Error(err))
	}
	s.ensureAvailabilityNotification(ctx, userID)

	return &models.CadenceStatus{CanCheckIn: true}, nil
}

// ensureAvailabilityNotification creates a fresh "Check-In Available" entry
// unless an unread one already exists. Idempotence comes from the existence
// query, not the tracker flag alone.
func (s *checkInService) ensureAvailabilityNotification(ctx context.Context, userID int64) {
	exists, err := s.notificationRepo.UnreadExistsByTitle(userID, models.TitleCheckInAvailable)
	if err != nil {
		s.logger.Warn("Failed to check for existing availability notification",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if exists {
		return
	}

	if _, err := s.notifier.Schedule(ctx, userID, models.TitleCheckInAvailable,
		"Your next check-in window is open. How are you feeling today?",
		models.NotificationData{
			Type:        models.NotificationTypeWellness,
			Actionable:  true,
			ActionRoute: "/check-in",
		}); err != nil {
		s.logger.Warn("Failed to schedule availability notification",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	s.notifier.MarkShown(userID, models.FlagCheckInAvailable)
}

// ResetTimer rewinds the latest check-in past the cooldown window. Developer
// escape hatch; the check-in row itself stays.
func (s *checkInService) ResetTimer(ctx context.Context, userID int64) error {
	rewoundTo := s.now().Add(-s.cooldown - time.Minute)
	if err := s.checkInRepo.RewindLatestCheckIn(userID, rewoundTo); err != nil {
		return fmt.Errorf("failed to rewind check-in timer: %w", err)
	}
	if err := s.deviceRepo.SetCooldown(userID, false, nil); err != nil {
		s.logger.Warn("Failed to clear device cooldown flags", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *checkInService) SyncHealthMetric(ctx context.Context, userID int64, metric *models.HealthMetric) error {
	if metric.SleepHours < 0 || metric.SleepHours > 24 {
		return fmt.Errorf("%w: sleep hours must be between 0 and 24", ErrValidation)
	}
	if metric.SleepQuality < 0 || metric.SleepQuality > 10 {
		return fmt.Errorf("%w: sleep quality must be between 0 and 10", ErrValidation)
	}
	if metric.Steps < 0 || metric.ExerciseMinutes < 0 {
		return fmt.Errorf("%w: steps and exercise minutes cannot be negative", ErrValidation)
	}

	metric.UserID = userID
	if metric.Day.IsZero() {
		metric.Day = s.now().Truncate(24 * time.Hour)
	}
	return s.metricRepo.UpsertMetric(metric)
}

// SweepAvailability clears stale device cooldown flags and creates
// availability notifications for users whose cooldown has elapsed. Runs on
// the scheduler's short interval.
func (s *checkInService) SweepAvailability(ctx context.Context) {
	cutoff := s.now().Add(-s.cooldown)
	userIDs, err := s.deviceRepo.ListCooldownExpired(cutoff)
	if err != nil {
		s.logger.Error("Availability sweep failed to list expired cooldowns", zap.Error(err))
		return
	}

	for _, userID := range userIDs {
		if err := s.deviceRepo.SetCooldown(userID, false, nil); err != nil {
			s.logger.Warn("Failed to clear device cooldown flags", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		s.ensureAvailabilityNotification(ctx, userID)
	}
}
