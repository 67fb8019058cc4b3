package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wellbeing-backend/internal/classifier_client"
	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"
)

// Classifier is the opaque scoring service. Implemented by
// classifier_client.Client.
type Classifier interface {
	Classify(ctx context.Context, samples []classifier_client.Sample, baseline *classifier_client.Baseline) (*classifier_client.ClassifyResponse, error)
}

type BaselineService interface {
	Establish(ctx context.Context, userID int64) (*models.BaselineProfile, error)
	Active(ctx context.Context, userID int64) (*models.BaselineProfile, error)
	History(ctx context.Context, userID int64, limit int) ([]*models.BaselineProfile, error)
}

type baselineService struct {
	baselineRepo repository.BaselineRepository
	checkInRepo  repository.CheckInRepository
	metricRepo   repository.HealthMetricRepository
	classifier   Classifier
	windowDays   int
	minSamples   int
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewBaselineService(
	baselineRepo repository.BaselineRepository,
	checkInRepo repository.CheckInRepository,
	metricRepo repository.HealthMetricRepository,
	classifier Classifier,
	windowDays, minSamples int,
	timeout time.Duration,
	logger *zap.Logger,
) BaselineService {
	return &baselineService{
		baselineRepo: baselineRepo,
		checkInRepo:  checkInRepo,
		metricRepo:   metricRepo,
		classifier:   classifier,
		windowDays:   windowDays,
		minSamples:   minSamples,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// activityLevelValue maps the check-in activity levels onto a numeric scale
// so they can be averaged.
func activityLevelValue(level string) float64 {
	switch level {
	case models.ActivityLevelLow:
		return 1
	case models.ActivityLevelModerate:
		return 2
	case models.ActivityLevelHigh:
		return 3
	default:
		return 0
	}
}

// Establish summarizes the historical window into a new baseline profile.
// The baseline is a statistical average, not a judgment: the classifier only
// contributes a descriptive label, and a labeling outage degrades to a
// neutral label rather than blocking establishment.
func (s *baselineService) Establish(ctx context.Context, userID int64) (*models.BaselineProfile, error) {
	now := s.now()
	since := now.AddDate(0, 0, -s.windowDays)

	checkIns, err := s.checkInRepo.GetCheckInsSince(userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}
	metrics, err := s.metricRepo.GetMetricsSince(userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load health metrics: %w", err)
	}

	if len(checkIns)+len(metrics) < s.minSamples {
		return nil, fmt.Errorf("%w: need at least %d samples in the last %d days, have %d",
			ErrInsufficientData, s.minSamples, s.windowDays, len(checkIns)+len(metrics))
	}

	profile := &models.BaselineProfile{
		ID:            uuid.NewString(),
		UserID:        userID,
		EstablishedAt: now,
	}

	if len(checkIns) > 0 {
		var moodSum, activitySum float64
		var activityCount int
		for _, checkIn := range checkIns {
			moodSum += float64(checkIn.MoodScore)
			activities, err := checkIn.Activities()
			if err != nil {
				s.logger.Warn("Skipping malformed activities on check-in",
					zap.String("check_in_id", checkIn.ID), zap.Error(err))
				continue
			}
			for _, activity := range activities {
				activitySum += activityLevelValue(activity.Level)
				activityCount++
			}
		}
		profile.AverageMoodScore = moodSum / float64(len(checkIns))
		if activityCount > 0 {
			profile.ActivityLevel = activitySum / float64(activityCount)
		}
	}

	if len(metrics) > 0 {
		var sleepSum, qualitySum, stepsSum, exerciseSum float64
		for _, metric := range metrics {
			sleepSum += metric.SleepHours
			qualitySum += metric.SleepQuality
			stepsSum += float64(metric.Steps)
			exerciseSum += float64(metric.ExerciseMinutes)
		}
		n := float64(len(metrics))
		profile.SleepHours = sleepSum / n
		profile.SleepQuality = qualitySum / n
		profile.AverageStepsPerDay = stepsSum / n
		profile.ExerciseMinutesPerWeek = exerciseSum / n * 7
	}

	s.attachDescriptiveLabel(ctx, profile, checkIns, metrics)

	if err := s.baselineRepo.SaveProfile(profile); err != nil {
		return nil, fmt.Errorf("failed to save baseline profile: %w", err)
	}

	s.logger.Info("Baseline established",
		zap.Int64("user_id", userID),
		zap.Int("check_ins", len(checkIns)),
		zap.Int("metric_days", len(metrics)))

	return profile, nil
}

func (s *baselineService) attachDescriptiveLabel(ctx context.Context, profile *models.BaselineProfile, checkIns []*models.CheckIn, metrics []*models.HealthMetric) {
	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.classifier.Classify(classifyCtx, buildSamples(checkIns, metrics), nil)
	if err != nil {
		s.logger.Warn("Classifier unavailable during baseline establish, using neutral label",
			zap.Int64("user_id", profile.UserID), zap.Error(err))
		profile.ConfidenceScore = 0.5
		return
	}

	profile.ConfidenceScore = clampConfidence(response.Confidence)
	if raw, err := json.Marshal(response); err == nil {
		profile.RawAssessment = raw
	}
}

func (s *baselineService) Active(ctx context.Context, userID int64) (*models.BaselineProfile, error) {
	profile, err := s.baselineRepo.GetActiveProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: no baseline established", ErrNotFound)
	}
	return profile, nil
}

func (s *baselineService) History(ctx context.Context, userID int64, limit int) ([]*models.BaselineProfile, error) {
	return s.baselineRepo.GetHistory(userID, limit)
}

// buildSamples turns check-ins and daily metrics into classifier samples.
// Samples keep their timestamps; recency weighting is the classifier's
// concern.
func buildSamples(checkIns []*models.CheckIn, metrics []*models.HealthMetric) []classifier_client.Sample {
	samples := make([]classifier_client.Sample, 0, len(checkIns)+len(metrics))

	for _, checkIn := range checkIns {
		mood := float64(checkIn.MoodScore)
		sample := classifier_client.Sample{
			Timestamp: checkIn.Timestamp,
			MoodScore: &mood,
		}
		if activities, err := checkIn.Activities(); err == nil && len(activities) > 0 {
			var sum float64
			for _, activity := range activities {
				sum += activityLevelValue(activity.Level)
			}
			level := sum / float64(len(activities))
			sample.ActivityLevel = &level
		}
		samples = append(samples, sample)
	}

	for _, metric := range metrics {
		sleepHours := metric.SleepHours
		sleepQuality := metric.SleepQuality
		steps := float64(metric.Steps)
		exercise := float64(metric.ExerciseMinutes)
		samples = append(samples, classifier_client.Sample{
			Timestamp:       metric.Day,
			SleepHours:      &sleepHours,
			SleepQuality:    &sleepQuality,
			Steps:           &steps,
			ExerciseMinutes: &exercise,
		})
	}

	return samples
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
