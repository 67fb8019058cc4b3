package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/push_client"
	"wellbeing-backend/internal/repository"
)

const (
	dedupWindow  = 5 * time.Second
	flagValidity = 24 * time.Hour
)

// PushGateway is the outbound push transport. Implemented by
// push_client.Client; nil/absent when no durable push channel is configured.
type PushGateway interface {
	Register(ctx context.Context, req push_client.RegisterRequest) error
	Push(ctx context.Context, req push_client.PushRequest) error
}

type NotifyService interface {
	Schedule(ctx context.Context, userID int64, title, body string, data models.NotificationData) (*string, error)
	Broadcast(ctx context.Context, userIDs []int64, title, body string, data models.NotificationData)
	HasShown(userID int64, flagKey string) bool
	MarkShown(userID int64, flagKey string)
	RegisterDevice(ctx context.Context, userID int64, input models.RegisterDeviceInput) (bool, error)
	ListForUser(userID int64, limit int) ([]*models.Notification, error)
	MarkRead(userID int64, id string) error
	Reset()
}

type notifyService struct {
	notificationRepo repository.NotificationRepository
	deviceRepo       repository.DeviceRepository
	pusher           PushGateway
	logger           *zap.Logger

	now     func() time.Time
	sleep   func(time.Duration)
	backoff []time.Duration

	// Process-local dedup: content-hash (or special class) -> expiry.
	// Bounded by the dedup window; swept lazily on each Schedule call.
	mu     sync.Mutex
	recent map[string]time.Time
}

func NewNotifyService(
	notificationRepo repository.NotificationRepository,
	deviceRepo repository.DeviceRepository,
	pusher PushGateway,
	logger *zap.Logger,
) NotifyService {
	return &notifyService{
		notificationRepo: notificationRepo,
		deviceRepo:       deviceRepo,
		pusher:           pusher,
		logger:           logger,
		now:              time.Now,
		sleep:            time.Sleep,
		backoff:          []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		recent:           make(map[string]time.Time),
	}
}

// dedupKey derives the in-memory dedup key. The check-in-recorded class is
// deduplicated as a class: repeated triggers with slightly different bodies
// are still the same event.
func dedupKey(title, body string) string {
	if title == models.TitleCheckInRecorded {
		return "class:" + title
	}
	sum := sha256.Sum256([]byte(title + "|" + body))
	return hex.EncodeToString(sum[:])
}

// suppressed reports whether an identical notification was scheduled within
// the dedup window, recording this one if not.
func (s *notifyService) suppressed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, expiry := range s.recent {
		if expiry.Before(now) {
			delete(s.recent, k)
		}
	}

	if _, ok := s.recent[key]; ok {
		return true
	}
	s.recent[key] = now.Add(dedupWindow)
	return false
}

// Schedule writes a ledger entry and pushes it to the user's devices. Returns
// (nil, nil) when the notification was suppressed as a duplicate. Push
// failures degrade to skipped; the ledger entry is the source of truth.
func (s *notifyService) Schedule(ctx context.Context, userID int64, title, body string, data models.NotificationData) (*string, error) {
	if s.suppressed(dedupKey(title, body)) {
		s.logger.Debug("Notification suppressed as duplicate",
			zap.Int64("user_id", userID), zap.String("title", title))
		return nil, nil
	}

	notification := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Body:        body,
		Type:        data.Type,
		Actionable:  data.Actionable,
		ActionRoute: data.ActionRoute,
		Read:        false,
		CreatedAt:   s.now(),
	}

	if err := s.notificationRepo.SaveNotification(notification); err != nil {
		s.logger.Error("Failed to save notification", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.pushToDevices(ctx, userID, title, body, data)

	return &notification.ID, nil
}

// Broadcast schedules the same notification for a whole audience. One call
// per tier transition; recipient failures are logged and skipped.
func (s *notifyService) Broadcast(ctx context.Context, userIDs []int64, title, body string, data models.NotificationData) {
	for _, userID := range userIDs {
		notification := &models.Notification{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       title,
			Body:        body,
			Type:        data.Type,
			Actionable:  data.Actionable,
			ActionRoute: data.ActionRoute,
			Read:        false,
			CreatedAt:   s.now(),
		}
		if err := s.notificationRepo.SaveNotification(notification); err != nil {
			s.logger.Error("Failed to save broadcast notification",
				zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		s.pushToDevices(ctx, userID, title, body, data)
	}
}

func (s *notifyService) pushToDevices(ctx context.Context, userID int64, title, body string, data models.NotificationData) {
	if s.pusher == nil {
		return
	}

	devices, err := s.deviceRepo.ListForUser(userID)
	if err != nil {
		s.logger.Warn("Failed to list devices for push", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	for _, device := range devices {
		err := s.pusher.Push(ctx, push_client.PushRequest{
			Token: device.PushToken,
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":         data.Type,
				"actionable":   boolString(data.Actionable),
				"action_route": data.ActionRoute,
			},
		})
		if err != nil {
			s.logger.Warn("Push delivery failed, skipping device",
				zap.Int64("user_id", userID),
				zap.String("device_id", device.DeviceID),
				zap.Error(err))
		}
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// HasShown reports whether the persisted flag for the event class is still
// valid. Storage failures read as "not shown": a lost flag at worst repeats
// one notification, which is recoverable.
func (s *notifyService) HasShown(userID int64, flagKey string) bool {
	flag, err := s.notificationRepo.GetFlag(userID, flagKey)
	if err != nil {
		s.logger.Warn("Failed to read notification flag, treating as absent",
			zap.Int64("user_id", userID), zap.String("flag_key", flagKey), zap.Error(err))
		return false
	}
	if flag == nil {
		return false
	}
	return s.now().Sub(flag.ShownAt) < flagValidity
}

// MarkShown persists the flag for the event class. Write failures are logged
// and swallowed; they must never abort the caller's flow.
func (s *notifyService) MarkShown(userID int64, flagKey string) {
	flag := &models.NotificationFlag{
		UserID:  userID,
		FlagKey: flagKey,
		ShownAt: s.now(),
	}
	if err := s.notificationRepo.UpsertFlag(flag); err != nil {
		s.logger.Warn("Failed to persist notification flag",
			zap.Int64("user_id", userID), zap.String("flag_key", flagKey), zap.Error(err))
	}
}

// RegisterDevice upserts the device row and registers the token with the push
// gateway, retrying with backoff. It returns false rather than an error after
// exhausting retries so startup flows are never blocked, and true when no
// gateway is configured (registration intentionally skipped).
func (s *notifyService) RegisterDevice(ctx context.Context, userID int64, input models.RegisterDeviceInput) (bool, error) {
	device := &models.Device{
		UserID:    userID,
		DeviceID:  input.DeviceID,
		PushToken: input.Token,
		Platform:  input.Platform,
		UpdatedAt: s.now(),
	}
	if err := s.deviceRepo.UpsertDevice(device); err != nil {
		return false, err
	}

	if s.pusher == nil {
		return true, nil
	}

	req := push_client.RegisterRequest{
		UserID:   userID,
		Token:    input.Token,
		Platform: input.Platform,
		DeviceID: input.DeviceID,
	}

	for attempt, delay := range s.backoff {
		err := s.pusher.Register(ctx, req)
		if err == nil {
			return true, nil
		}
		s.logger.Warn("Push token registration failed",
			zap.Int64("user_id", userID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		s.sleep(delay)
	}

	s.logger.Error("Push token registration gave up after retries", zap.Int64("user_id", userID))
	return false, nil
}

func (s *notifyService) ListForUser(userID int64, limit int) ([]*models.Notification, error) {
	return s.notificationRepo.ListForUser(userID, limit)
}

func (s *notifyService) MarkRead(userID int64, id string) error {
	return s.notificationRepo.MarkRead(userID, id)
}

// Reset clears the in-memory dedup set. Called on logout/service teardown so
// state never leaks across sessions.
func (s *notifyService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = make(map[string]time.Time)
}
