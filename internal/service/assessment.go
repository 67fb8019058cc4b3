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

type AssessmentService interface {
	AnalyzeRecent(ctx context.Context, userID int64) (*models.Assessment, error)
	AssessStandard(ctx context.Context, userID int64) (*models.Assessment, error)
	Latest(ctx context.Context, userID int64) (*models.Assessment, error)
	History(ctx context.Context, userID int64, limit int) ([]*models.Assessment, error)
	ClearAll(ctx context.Context, userID int64) error
}

type assessmentService struct {
	assessmentRepo repository.AssessmentRepository
	baselineRepo   repository.BaselineRepository
	checkInRepo    repository.CheckInRepository
	metricRepo     repository.HealthMetricRepository
	classifier     Classifier
	escalation     SupportService
	windowDays     int
	timeout        time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	baselineRepo repository.BaselineRepository,
	checkInRepo repository.CheckInRepository,
	metricRepo repository.HealthMetricRepository,
	classifier Classifier,
	escalation SupportService,
	windowDays int,
	timeout time.Duration,
	logger *zap.Logger,
) AssessmentService {
	return &assessmentService{
		assessmentRepo: assessmentRepo,
		baselineRepo:   baselineRepo,
		checkInRepo:    checkInRepo,
		metricRepo:     metricRepo,
		classifier:     classifier,
		escalation:     escalation,
		windowDays:     windowDays,
		timeout:        timeout,
		logger:         logger,
		now:            time.Now,
	}
}

// AnalyzeRecent scores the recent window against the user's active baseline.
// A missing baseline is not an error; the comparison section is simply empty.
func (s *assessmentService) AnalyzeRecent(ctx context.Context, userID int64) (*models.Assessment, error) {
	baseline, err := s.baselineRepo.GetActiveProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}

	var comparisonBaseline *classifier_client.Baseline
	if baseline != nil {
		comparisonBaseline = &classifier_client.Baseline{
			SleepHours:             baseline.SleepHours,
			SleepQuality:           baseline.SleepQuality,
			ActivityLevel:          baseline.ActivityLevel,
			AverageMoodScore:       baseline.AverageMoodScore,
			AverageStepsPerDay:     baseline.AverageStepsPerDay,
			ExerciseMinutesPerWeek: baseline.ExerciseMinutesPerWeek,
		}
	}

	return s.assess(ctx, userID, comparisonBaseline)
}

// AssessStandard scores the recent window on its own, without baseline
// comparison.
func (s *assessmentService) AssessStandard(ctx context.Context, userID int64) (*models.Assessment, error) {
	return s.assess(ctx, userID, nil)
}

func (s *assessmentService) assess(ctx context.Context, userID int64, baseline *classifier_client.Baseline) (*models.Assessment, error) {
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

	if len(checkIns)+len(metrics) == 0 {
		return nil, fmt.Errorf("%w: no check-ins or health metrics in the last %d days",
			ErrInsufficientData, s.windowDays)
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.classifier.Classify(classifyCtx, buildSamples(checkIns, metrics), baseline)
	if err != nil {
		// Surface the failure; retries are user-initiated so repeated outages
		// stay visible.
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	reasoning := buildReasoning(checkIns, metrics, response.SignificantChanges)
	reasoningRaw, err := json.Marshal(reasoning)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reasoning data: %w", err)
	}

	assessment := &models.Assessment{
		ID:                   uuid.NewString(),
		UserID:               userID,
		Timestamp:            now,
		MentalHealthStatus:   response.Status,
		ConfidenceScore:      clampConfidence(response.Confidence),
		NeedsSupport:         response.NeedsSupport,
		SupportRequestStatus: models.SupportNone,
		ReasoningRaw:         reasoningRaw,
	}

	if err := s.assessmentRepo.SaveAssessment(assessment); err != nil {
		return nil, fmt.Errorf("failed to save assessment: %w", err)
	}

	s.logger.Info("Assessment created",
		zap.Int64("user_id", userID),
		zap.String("assessment_id", assessment.ID),
		zap.String("status", assessment.MentalHealthStatus),
		zap.Bool("needs_support", assessment.NeedsSupport),
		zap.Bool("baseline_compared", baseline != nil))

	if err := s.escalation.ProcessAssessment(ctx, assessment); err != nil {
		// The assessment itself is already persisted; escalation problems are
		// reported but do not undo it.
		s.logger.Error("Support escalation failed for assessment",
			zap.String("assessment_id", assessment.ID), zap.Error(err))
	}

	return assessment, nil
}

// buildReasoning snapshots the recent-window averages the classifier saw, so
// the result can be explained later without re-running the analysis.
func buildReasoning(checkIns []*models.CheckIn, metrics []*models.HealthMetric, changes []string) *models.ReasoningData {
	reasoning := &models.ReasoningData{SignificantChanges: changes}

	if len(checkIns) > 0 {
		var moodSum, activitySum float64
		var activityCount int
		for _, checkIn := range checkIns {
			moodSum += float64(checkIn.MoodScore)
			if activities, err := checkIn.Activities(); err == nil {
				for _, activity := range activities {
					activitySum += activityLevelValue(activity.Level)
					activityCount++
				}
			}
		}
		mood := moodSum / float64(len(checkIns))
		reasoning.CheckInMood = &mood
		if activityCount > 0 {
			level := activitySum / float64(activityCount)
			reasoning.ActivityLevel = &level
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
		sleepHours := sleepSum / n
		sleepQuality := qualitySum / n
		steps := stepsSum / n
		exercise := exerciseSum
		reasoning.SleepHours = &sleepHours
		reasoning.SleepQuality = &sleepQuality
		reasoning.StepsPerDay = &steps
		reasoning.RecentExerciseMinutes = &exercise
	}

	return reasoning
}

func (s *assessmentService) Latest(ctx context.Context, userID int64) (*models.Assessment, error) {
	assessment, err := s.assessmentRepo.GetLatest(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest assessment: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: no assessments yet", ErrNotFound)
	}
	return assessment, nil
}

func (s *assessmentService) History(ctx context.Context, userID int64, limit int) ([]*models.Assessment, error) {
	return s.assessmentRepo.GetHistory(userID, limit)
}

// ClearAll removes every assessment for the user. Admin-gated at the handler.
func (s *assessmentService) ClearAll(ctx context.Context, userID int64) error {
	return s.assessmentRepo.DeleteAllForUser(userID)
}
