package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wellbeing-backend/internal/models"
)

func newTestNotify(notifications *fakeNotificationRepo, devices *fakeDeviceRepo, pusher PushGateway, clock *time.Time) *notifyService {
	svc := NewNotifyService(notifications, devices, pusher, zap.NewNop()).(*notifyService)
	svc.now = func() time.Time { return *clock }
	svc.sleep = func(time.Duration) {}
	return svc
}

func TestScheduleDeduplicatesWithinWindow(t *testing.T) {
	notifications := newFakeNotificationRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	data := models.NotificationData{Type: models.NotificationTypeWellness}

	first, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "Your baseline has been established.", data)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "Your baseline has been established.", data)
	require.NoError(t, err)
	assert.Nil(t, second, "identical notification inside the window must be suppressed")
	assert.Len(t, notifications.notifications, 1)

	// A different body is a different notification.
	third, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "Something else entirely.", data)
	require.NoError(t, err)
	assert.NotNil(t, third)
	assert.Len(t, notifications.notifications, 2)
}

func TestScheduleDedupWindowExpires(t *testing.T) {
	notifications := newFakeNotificationRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	data := models.NotificationData{Type: models.NotificationTypeWellness}

	_, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "body", data)
	require.NoError(t, err)

	clock = clock.Add(6 * time.Second)

	id, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "body", data)
	require.NoError(t, err)
	assert.NotNil(t, id, "the same notification is deliverable again after the window passes")
	assert.Len(t, notifications.notifications, 2)
}

func TestCheckInRecordedDedupedAsClass(t *testing.T) {
	notifications := newFakeNotificationRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	data := models.NotificationData{Type: models.NotificationTypeWellness}

	first, err := svc.Schedule(context.Background(), 1, models.TitleCheckInRecorded, "Thanks for checking in.", data)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Different body, same event class.
	second, err := svc.Schedule(context.Background(), 1, models.TitleCheckInRecorded, "Logged at 12:00.", data)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, notifications.notifications, 1)
}

func TestResetClearsDedupState(t *testing.T) {
	notifications := newFakeNotificationRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	data := models.NotificationData{Type: models.NotificationTypeWellness}

	_, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "body", data)
	require.NoError(t, err)

	svc.Reset()

	id, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "body", data)
	require.NoError(t, err)
	assert.NotNil(t, id)
	assert.Len(t, notifications.notifications, 2)
}

func TestSchedulePushesToRegisteredDevices(t *testing.T) {
	notifications := newFakeNotificationRepo()
	devices := newFakeDeviceRepo()
	pusher := &fakePusher{}
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, devices, pusher, &clock)

	require.NoError(t, devices.UpsertDevice(&models.Device{
		UserID: 1, DeviceID: "phone-1", PushToken: "tok-1", Platform: "android",
	}))

	_, err := svc.Schedule(context.Background(), 1, "Baseline Ready", "body",
		models.NotificationData{Type: models.NotificationTypeWellness})
	require.NoError(t, err)

	assert.Equal(t, 1, pusher.pushCalls)
	assert.Len(t, notifications.notifications, 1)
}

func TestRegisterDeviceRetriesWithBackoff(t *testing.T) {
	devices := newFakeDeviceRepo()
	gatewayErr := errors.New("gateway unavailable")
	pusher := &fakePusher{registerErrs: []error{gatewayErr, gatewayErr, gatewayErr}}
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(newFakeNotificationRepo(), devices, pusher, &clock)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	ok, err := svc.RegisterDevice(context.Background(), 1, models.RegisterDeviceInput{
		Token: "tok-1", Platform: "ios", DeviceID: "phone-1",
	})
	require.NoError(t, err, "exhausted retries report failure, not an error")
	assert.False(t, ok)
	assert.Equal(t, 3, pusher.registerCalls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}, slept)

	// The device row survives even when the gateway never accepts the token.
	saved, err := devices.ListForUser(1)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestRegisterDeviceSucceedsAfterTransientFailure(t *testing.T) {
	devices := newFakeDeviceRepo()
	pusher := &fakePusher{registerErrs: []error{errors.New("timeout")}}
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(newFakeNotificationRepo(), devices, pusher, &clock)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	ok, err := svc.RegisterDevice(context.Background(), 1, models.RegisterDeviceInput{
		Token: "tok-1", Platform: "ios", DeviceID: "phone-1",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, pusher.registerCalls)
	assert.Equal(t, []time.Duration{1 * time.Second}, slept)
}

func TestRegisterDeviceWithoutGateway(t *testing.T) {
	devices := newFakeDeviceRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(newFakeNotificationRepo(), devices, nil, &clock)

	ok, err := svc.RegisterDevice(context.Background(), 1, models.RegisterDeviceInput{
		Token: "tok-1", Platform: "android", DeviceID: "phone-1",
	})
	require.NoError(t, err)
	assert.True(t, ok, "no gateway means registration is intentionally skipped, not failed")

	saved, err := devices.ListForUser(1)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestFlagTracker(t *testing.T) {
	notifications := newFakeNotificationRepo()
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	assert.False(t, svc.HasShown(1, models.FlagCheckInAvailable))

	svc.MarkShown(1, models.FlagCheckInAvailable)
	assert.True(t, svc.HasShown(1, models.FlagCheckInAvailable))

	// Flags expire after their validity window.
	clock = clock.Add(25 * time.Hour)
	assert.False(t, svc.HasShown(1, models.FlagCheckInAvailable))
}

func TestFlagTrackerSurvivesStorageFailure(t *testing.T) {
	notifications := newFakeNotificationRepo()
	notifications.flagErr = errors.New("disk full")
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestNotify(notifications, newFakeDeviceRepo(), nil, &clock)

	// Failures read as "not shown" and writes never panic or abort.
	svc.MarkShown(1, models.FlagCheckInAvailable)
	assert.False(t, svc.HasShown(1, models.FlagCheckInAvailable))
}
