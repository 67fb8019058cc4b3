package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wellbeing-backend/internal/alert"
	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"
)

type SupportService interface {
	ProcessAssessment(ctx context.Context, assessment *models.Assessment) error
	ProvideSupport(ctx context.Context, assessmentID string, helperID int64) (*models.Assessment, error)
	ListBuddyRequests(ctx context.Context, viewerID int64) ([]*models.SupportRequest, error)
	ListCommunityRequests(ctx context.Context, viewerID int64) ([]*models.SupportRequest, error)
	ListGlobalRequests(ctx context.Context) ([]*models.SupportRequest, error)
	SweepEscalations(ctx context.Context)
}

type supportService struct {
	assessmentRepo repository.AssessmentRepository
	authRepo       repository.AuthRepository
	peerRepo       repository.PeerRepository
	notifier       NotifyService
	alerter        *alert.TelegramAlerter
	widenAfter     time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewSupportService(
	assessmentRepo repository.AssessmentRepository,
	authRepo repository.AuthRepository,
	peerRepo repository.PeerRepository,
	notifier NotifyService,
	alerter *alert.TelegramAlerter,
	widenAfter time.Duration,
	logger *zap.Logger,
) SupportService {
	return &supportService{
		assessmentRepo: assessmentRepo,
		authRepo:       authRepo,
		peerRepo:       peerRepo,
		notifier:       notifier,
		alerter:        alerter,
		widenAfter:     widenAfter,
		logger:         logger,
		now:            time.Now,
	}
}

// nextTier returns the tier one step wider, or "" when there is none.
func nextTier(status string) string {
	switch status {
	case models.SupportNone:
		return models.SupportBuddyRequested
	case models.SupportBuddyRequested:
		return models.SupportCommunityRequested
	case models.SupportCommunityRequested:
		return models.SupportGlobalRequested
	default:
		return ""
	}
}

// ProcessAssessment applies the escalation rules to a freshly persisted
// assessment. At most one tier transition happens per call: either this
// assessment opens a buddy-tier request, or a repeated needs-support signal
// widens the user's existing open request once its tier has gone unaddressed
// for the configured duration.
func (s *supportService) ProcessAssessment(ctx context.Context, assessment *models.Assessment) error {
	if !assessment.NeedsSupport {
		return nil
	}

	open, err := s.assessmentRepo.GetOpenRequest(assessment.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up open support request: %w", err)
	}

	now := s.now()

	if open == nil {
		requestTime := now
		if err := s.assessmentRepo.UpdateSupportStatus(assessment.ID, models.SupportBuddyRequested, &requestTime, now); err != nil {
			return fmt.Errorf("failed to open support request: %w", err)
		}
		assessment.SupportRequestStatus = models.SupportBuddyRequested
		assessment.SupportRequestTime = &requestTime
		assessment.TierUpdatedAt = now

		s.logger.Info("Support request opened at buddy tier",
			zap.Int64("user_id", assessment.UserID),
			zap.String("assessment_id", assessment.ID))
		s.notifyTier(ctx, assessment, models.SupportBuddyRequested)
		return nil
	}

	// Repeated needs-support assessment while a request is already open:
	// widen only when the current tier has been unaddressed long enough.
	if now.Sub(open.TierUpdatedAt) < s.widenAfter {
		s.logger.Debug("Open support request not yet stale, no transition",
			zap.Int64("user_id", assessment.UserID),
			zap.String("open_assessment_id", open.ID))
		return nil
	}

	return s.widen(ctx, open)
}

func (s *supportService) widen(ctx context.Context, assessment *models.Assessment) error {
	wider := nextTier(assessment.SupportRequestStatus)
	if wider == "" {
		return nil // Already at the global tier; nothing wider exists.
	}

	now := s.now()
	if err := s.assessmentRepo.UpdateSupportStatus(assessment.ID, wider, nil, now); err != nil {
		return fmt.Errorf("failed to widen support request: %w", err)
	}
	assessment.SupportRequestStatus = wider
	assessment.TierUpdatedAt = now

	s.logger.Info("Support request widened",
		zap.Int64("user_id", assessment.UserID),
		zap.String("assessment_id", assessment.ID),
		zap.String("tier", wider))

	s.notifyTier(ctx, assessment, wider)

	if wider == models.SupportGlobalRequested {
		username := fmt.Sprintf("user %d", assessment.UserID)
		if user, err := s.authRepo.GetUserByID(assessment.UserID); err == nil {
			username = user.Username
		}
		s.alerter.GlobalEscalation(username, assessment.ID)
	}

	return nil
}

// notifyTier fires the single fan-out for a tier transition, scoped to the
// new tier's audience.
func (s *supportService) notifyTier(ctx context.Context, assessment *models.Assessment, tier string) {
	var (
		audience []int64
		err      error
		title    string
		body     string
		data     models.NotificationData
	)

	switch tier {
	case models.SupportBuddyRequested:
		audience, err = s.peerRepo.BuddyIDs(assessment.UserID)
		title = "Your buddy could use support"
		body = "One of your buddies is going through a rough patch. Reach out when you can."
		data = models.NotificationData{
			Type:        models.NotificationTypeBuddySupport,
			Actionable:  true,
			ActionRoute: "/support/buddy",
		}
	case models.SupportCommunityRequested:
		audience, err = s.peerRepo.CommunityPeerIDs(assessment.UserID)
		title = "A community member needs support"
		body = "Someone in your community has asked for support."
		data = models.NotificationData{
			Type:        models.NotificationTypeCommunitySupport,
			Actionable:  true,
			ActionRoute: "/support/community",
		}
	case models.SupportGlobalRequested:
		audience, err = s.peerRepo.AllUserIDs()
		title = "Someone needs support"
		body = "A member of the network has an open support request."
		data = models.NotificationData{
			Type:        models.NotificationTypeGlobalSupport,
			Actionable:  true,
			ActionRoute: "/support/global",
		}
	default:
		return
	}

	if err != nil {
		s.logger.Error("Failed to resolve notification audience",
			zap.String("tier", tier), zap.Int64("user_id", assessment.UserID), zap.Error(err))
		return
	}

	// The requester never appears in their own support audience.
	filtered := audience[:0]
	for _, id := range audience {
		if id != assessment.UserID {
			filtered = append(filtered, id)
		}
	}

	s.notifier.Broadcast(ctx, filtered, title, body, data)
}

// ProvideSupport marks a tiered request as answered by the helper. Calling it
// on a request that is not currently tiered reports a conflict and mutates
// nothing.
func (s *supportService) ProvideSupport(ctx context.Context, assessmentID string, helperID int64) (*models.Assessment, error) {
	assessment, err := s.assessmentRepo.GetAssessmentByID(assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, assessmentID)
	}

	now := s.now()
	transitioned, err := s.assessmentRepo.MarkSupportProvided(assessmentID, helperID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark support provided: %w", err)
	}
	if !transitioned {
		return nil, fmt.Errorf("%w: support request is not open (status %s)",
			ErrConflict, assessment.SupportRequestStatus)
	}

	assessment.SupportRequestStatus = models.SupportProvided
	assessment.SupportProvidedBy = &helperID
	assessment.SupportProvidedTime = &now

	s.logger.Info("Support provided",
		zap.String("assessment_id", assessmentID),
		zap.Int64("helper_id", helperID))

	if _, err := s.notifier.Schedule(ctx, assessment.UserID, "Support is on the way",
		"Someone from your support network has reached out.",
		models.NotificationData{Type: models.NotificationTypeWellness}); err != nil {
		s.logger.Warn("Failed to notify requester about provided support",
			zap.String("assessment_id", assessmentID), zap.Error(err))
	}

	return assessment, nil
}

func (s *supportService) ListBuddyRequests(ctx context.Context, viewerID int64) ([]*models.SupportRequest, error) {
	return s.assessmentRepo.ListBuddyRequests(viewerID)
}

func (s *supportService) ListCommunityRequests(ctx context.Context, viewerID int64) ([]*models.SupportRequest, error) {
	return s.assessmentRepo.ListCommunityRequests(viewerID)
}

func (s *supportService) ListGlobalRequests(ctx context.Context) ([]*models.SupportRequest, error) {
	return s.assessmentRepo.ListGlobalRequests()
}

// SweepEscalations widens every open request whose tier has gone unaddressed
// past the configured duration. Runs on the scheduler's long interval so
// requests keep escalating even when the user stops generating assessments.
func (s *supportService) SweepEscalations(ctx context.Context) {
	cutoff := s.now().Add(-s.widenAfter)
	stale, err := s.assessmentRepo.ListStaleTiered(cutoff)
	if err != nil {
		s.logger.Error("Escalation sweep failed to list stale requests", zap.Error(err))
		return
	}

	for _, assessment := range stale {
		if err := s.widen(ctx, assessment); err != nil {
			s.logger.Error("Escalation sweep failed to widen request",
				zap.String("assessment_id", assessment.ID), zap.Error(err))
		}
	}
}
