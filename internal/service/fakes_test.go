package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"wellbeing-backend/internal/classifier_client"
	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/push_client"
)

// In-memory fakes for the repository and collaborator interfaces, so service
// behavior can be tested with fixed clocks and scripted classifier/gateway
// responses.

type fakeCheckInRepo struct {
	checkIns []*models.CheckIn
}

func (f *fakeCheckInRepo) SaveCheckIn(checkIn *models.CheckIn) error {
	f.checkIns = append(f.checkIns, checkIn)
	return nil
}

func (f *fakeCheckInRepo) GetLatestCheckIn(userID int64) (*models.CheckIn, error) {
	var latest *models.CheckIn
	for _, c := range f.checkIns {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.Timestamp.After(latest.Timestamp) {
			latest = c
		}
	}
	return latest, nil
}

func (f *fakeCheckInRepo) GetCheckInsSince(userID int64, since time.Time) ([]*models.CheckIn, error) {
	var result []*models.CheckIn
	for _, c := range f.checkIns {
		if c.UserID == userID && !c.Timestamp.Before(since) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (f *fakeCheckInRepo) RewindLatestCheckIn(userID int64, to time.Time) error {
	latest, _ := f.GetLatestCheckIn(userID)
	if latest != nil {
		latest.Timestamp = to
	}
	return nil
}

type fakeMetricRepo struct {
	metrics []*models.HealthMetric
}

func (f *fakeMetricRepo) UpsertMetric(metric *models.HealthMetric) error {
	for _, m := range f.metrics {
		if m.UserID == metric.UserID && m.Day.Equal(metric.Day) {
			*m = *metric
			return nil
		}
	}
	f.metrics = append(f.metrics, metric)
	return nil
}

func (f *fakeMetricRepo) GetMetricsSince(userID int64, since time.Time) ([]*models.HealthMetric, error) {
	var result []*models.HealthMetric
	for _, m := range f.metrics {
		if m.UserID == userID && !m.Day.Before(since) {
			result = append(result, m)
		}
	}
	return result, nil
}

type fakeBaselineRepo struct {
	profiles []*models.BaselineProfile
}

func (f *fakeBaselineRepo) SaveProfile(profile *models.BaselineProfile) error {
	f.profiles = append(f.profiles, profile)
	return nil
}

func (f *fakeBaselineRepo) GetActiveProfile(userID int64) (*models.BaselineProfile, error) {
	var active *models.BaselineProfile
	for _, p := range f.profiles {
		if p.UserID != userID {
			continue
		}
		if active == nil || p.EstablishedAt.After(active.EstablishedAt) {
			active = p
		}
	}
	return active, nil
}

func (f *fakeBaselineRepo) GetHistory(userID int64, limit int) ([]*models.BaselineProfile, error) {
	var result []*models.BaselineProfile
	for _, p := range f.profiles {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EstablishedAt.After(result[j].EstablishedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type fakeAssessmentRepo struct {
	assessments []*models.Assessment
	buddiesOf   map[int64][]int64
	usernames   map[int64]string
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{
		buddiesOf: make(map[int64][]int64),
		usernames: make(map[int64]string),
	}
}

func (f *fakeAssessmentRepo) SaveAssessment(a *models.Assessment) error {
	f.assessments = append(f.assessments, a)
	return nil
}

func (f *fakeAssessmentRepo) GetAssessmentByID(id string) (*models.Assessment, error) {
	for _, a := range f.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAssessmentRepo) GetLatest(userID int64) (*models.Assessment, error) {
	var latest *models.Assessment
	for _, a := range f.assessments {
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.Timestamp.After(latest.Timestamp) {
			latest = a
		}
	}
	return latest, nil
}

func isTiered(status string) bool {
	switch status {
	case models.SupportBuddyRequested, models.SupportCommunityRequested, models.SupportGlobalRequested:
		return true
	}
	return false
}

func (f *fakeAssessmentRepo) GetOpenRequest(userID int64) (*models.Assessment, error) {
	var open *models.Assessment
	for _, a := range f.assessments {
		if a.UserID != userID || !isTiered(a.SupportRequestStatus) {
			continue
		}
		if open == nil || a.Timestamp.After(open.Timestamp) {
			open = a
		}
	}
	return open, nil
}

func (f *fakeAssessmentRepo) GetHistory(userID int64, limit int) ([]*models.Assessment, error) {
	var result []*models.Assessment
	for _, a := range f.assessments {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeAssessmentRepo) UpdateSupportStatus(id, status string, requestTime *time.Time, tierUpdatedAt time.Time) error {
	for _, a := range f.assessments {
		if a.ID == id {
			a.SupportRequestStatus = status
			if requestTime != nil {
				a.SupportRequestTime = requestTime
			}
			a.TierUpdatedAt = tierUpdatedAt
			return nil
		}
	}
	return fmt.Errorf("assessment not found: %s", id)
}

func (f *fakeAssessmentRepo) MarkSupportProvided(id string, helperID int64, at time.Time) (bool, error) {
	for _, a := range f.assessments {
		if a.ID == id {
			if !isTiered(a.SupportRequestStatus) {
				return false, nil
			}
			a.SupportRequestStatus = models.SupportProvided
			a.SupportProvidedBy = &helperID
			a.SupportProvidedTime = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssessmentRepo) listByTier(tier string, allowed func(userID int64) bool) []*models.SupportRequest {
	var result []*models.SupportRequest
	for _, a := range f.assessments {
		if a.SupportRequestStatus != tier {
			continue
		}
		if allowed != nil && !allowed(a.UserID) {
			continue
		}
		result = append(result, &models.SupportRequest{
			Assessment:        *a,
			SubmitterUsername: f.usernames[a.UserID],
		})
	}
	return result
}

func (f *fakeAssessmentRepo) ListBuddyRequests(viewerID int64) ([]*models.SupportRequest, error) {
	buddies := make(map[int64]bool)
	for _, id := range f.buddiesOf[viewerID] {
		buddies[id] = true
	}
	return f.listByTier(models.SupportBuddyRequested, func(userID int64) bool { return buddies[userID] }), nil
}

func (f *fakeAssessmentRepo) ListCommunityRequests(viewerID int64) ([]*models.SupportRequest, error) {
	return f.listByTier(models.SupportCommunityRequested, nil), nil
}

func (f *fakeAssessmentRepo) ListGlobalRequests() ([]*models.SupportRequest, error) {
	return f.listByTier(models.SupportGlobalRequested, nil), nil
}

func (f *fakeAssessmentRepo) ListStaleTiered(cutoff time.Time) ([]*models.Assessment, error) {
	var result []*models.Assessment
	for _, a := range f.assessments {
		switch a.SupportRequestStatus {
		case models.SupportBuddyRequested, models.SupportCommunityRequested:
			if a.TierUpdatedAt.Before(cutoff) {
				result = append(result, a)
			}
		}
	}
	return result, nil
}

func (f *fakeAssessmentRepo) DeleteAllForUser(userID int64) error {
	var remaining []*models.Assessment
	for _, a := range f.assessments {
		if a.UserID != userID {
			remaining = append(remaining, a)
		}
	}
	f.assessments = remaining
	return nil
}

type fakeNotificationRepo struct {
	notifications []*models.Notification
	flags         map[string]*models.NotificationFlag
	flagErr       error
	saveErr       error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{flags: make(map[string]*models.NotificationFlag)}
}

func flagKeyFor(userID int64, key string) string {
	return fmt.Sprintf("%d|%s", userID, key)
}

func (f *fakeNotificationRepo) SaveNotification(n *models.Notification) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotificationRepo) ListForUser(userID int64, limit int) ([]*models.Notification, error) {
	var result []*models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(userID int64, id string) error {
	for _, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkReadByTitle(userID int64, title string) error {
	for _, n := range f.notifications {
		if n.UserID == userID && n.Title == title {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) UnreadExistsByTitle(userID int64, title string) (bool, error) {
	for _, n := range f.notifications {
		if n.UserID == userID && n.Title == title && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) UpsertFlag(flag *models.NotificationFlag) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	f.flags[flagKeyFor(flag.UserID, flag.FlagKey)] = flag
	return nil
}

func (f *fakeNotificationRepo) GetFlag(userID int64, key string) (*models.NotificationFlag, error) {
	if f.flagErr != nil {
		return nil, f.flagErr
	}
	return f.flags[flagKeyFor(userID, key)], nil
}

func (f *fakeNotificationRepo) DeleteFlag(userID int64, key string) error {
	delete(f.flags, flagKeyFor(userID, key))
	return nil
}

func (f *fakeNotificationRepo) countByTitle(userID int64, title string) int {
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.Title == title {
			count++
		}
	}
	return count
}

type fakeDeviceRepo struct {
	devices  []*models.Device
	cooldown map[int64]bool
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{cooldown: make(map[int64]bool)}
}

func (f *fakeDeviceRepo) UpsertDevice(device *models.Device) error {
	for _, d := range f.devices {
		if d.UserID == device.UserID && d.DeviceID == device.DeviceID {
			d.PushToken = device.PushToken
			d.Platform = device.Platform
			d.UpdatedAt = device.UpdatedAt
			return nil
		}
	}
	device.ID = int64(len(f.devices) + 1)
	f.devices = append(f.devices, device)
	return nil
}

func (f *fakeDeviceRepo) ListForUser(userID int64) ([]*models.Device, error) {
	var result []*models.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (f *fakeDeviceRepo) SetCooldown(userID int64, cooldown bool, lastCheckIn *time.Time) error {
	f.cooldown[userID] = cooldown
	for _, d := range f.devices {
		if d.UserID == userID {
			d.CheckInCooldown = cooldown
			if lastCheckIn != nil {
				d.LastCheckIn = lastCheckIn
			}
		}
	}
	return nil
}

func (f *fakeDeviceRepo) ListCooldownExpired(cutoff time.Time) ([]int64, error) {
	seen := make(map[int64]bool)
	var result []int64
	for _, d := range f.devices {
		if !d.CheckInCooldown || seen[d.UserID] {
			continue
		}
		if d.LastCheckIn == nil || d.LastCheckIn.Before(cutoff) {
			seen[d.UserID] = true
			result = append(result, d.UserID)
		}
	}
	return result, nil
}

type fakePeerRepo struct {
	buddies   map[int64][]int64
	community map[int64][]int64
	allUsers  []int64
}

func (f *fakePeerRepo) BuddyIDs(userID int64) ([]int64, error) {
	return f.buddies[userID], nil
}

func (f *fakePeerRepo) CommunityPeerIDs(userID int64) ([]int64, error) {
	return f.community[userID], nil
}

func (f *fakePeerRepo) AllUserIDs() ([]int64, error) {
	return f.allUsers, nil
}

type fakeAuthRepo struct {
	users map[int64]*models.User
}

func (f *fakeAuthRepo) CreateUser(user *models.User) error {
	user.ID = int64(len(f.users) + 1)
	f.users[user.ID] = user
	return nil
}

func (f *fakeAuthRepo) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) GetUserByID(id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) UsernameExists(username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type fakeClassifier struct {
	response     *classifier_client.ClassifyResponse
	err          error
	lastBaseline *classifier_client.Baseline
	lastSamples  []classifier_client.Sample
	calls        int
}

func (f *fakeClassifier) Classify(ctx context.Context, samples []classifier_client.Sample, baseline *classifier_client.Baseline) (*classifier_client.ClassifyResponse, error) {
	f.calls++
	f.lastSamples = samples
	f.lastBaseline = baseline
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type fakePusher struct {
	mu            sync.Mutex
	registerErrs  []error
	registerCalls int
	pushCalls     int
}

func (f *fakePusher) Register(ctx context.Context, req push_client.RegisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if len(f.registerErrs) > 0 {
		err := f.registerErrs[0]
		f.registerErrs = f.registerErrs[1:]
		return err
	}
	return nil
}

func (f *fakePusher) Push(ctx context.Context, req push_client.PushRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++
	return nil
}

// fakeNotifier records deliveries for escalation tests.
type fakeNotifier struct {
	scheduled  []*models.Notification
	broadcasts []broadcastCall
	flags      map[string]time.Time
	resetCalls int
}

type broadcastCall struct {
	userIDs []int64
	title   string
	data    models.NotificationData
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{flags: make(map[string]time.Time)}
}

func (f *fakeNotifier) Schedule(ctx context.Context, userID int64, title, body string, data models.NotificationData) (*string, error) {
	n := &models.Notification{ID: fmt.Sprintf("n-%d", len(f.scheduled)+1), UserID: userID, Title: title, Body: body, Type: data.Type}
	f.scheduled = append(f.scheduled, n)
	return &n.ID, nil
}

func (f *fakeNotifier) Broadcast(ctx context.Context, userIDs []int64, title, body string, data models.NotificationData) {
	f.broadcasts = append(f.broadcasts, broadcastCall{userIDs: userIDs, title: title, data: data})
}

func (f *fakeNotifier) HasShown(userID int64, flagKey string) bool {
	_, ok := f.flags[flagKeyFor(userID, flagKey)]
	return ok
}

func (f *fakeNotifier) MarkShown(userID int64, flagKey string) {
	f.flags[flagKeyFor(userID, flagKey)] = time.Now()
}

func (f *fakeNotifier) RegisterDevice(ctx context.Context, userID int64, input models.RegisterDeviceInput) (bool, error) {
	return true, nil
}

func (f *fakeNotifier) ListForUser(userID int64, limit int) ([]*models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(userID int64, id string) error { return nil }

func (f *fakeNotifier) Reset() { f.resetCalls++ }
