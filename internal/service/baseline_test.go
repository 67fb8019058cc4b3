package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wellbeing-backend/internal/classifier_client"
	"wellbeing-backend/internal/models"
)

type baselineFixture struct {
	svc        *baselineService
	profiles   *fakeBaselineRepo
	checkIns   *fakeCheckInRepo
	metrics    *fakeMetricRepo
	classifier *fakeClassifier
	clock      time.Time
}

func newBaselineFixture(t *testing.T, minSamples int) *baselineFixture {
	t.Helper()

	f := &baselineFixture{
		profiles:   &fakeBaselineRepo{},
		checkIns:   &fakeCheckInRepo{},
		metrics:    &fakeMetricRepo{},
		classifier: &fakeClassifier{response: &classifier_client.ClassifyResponse{Status: models.StatusStable, Confidence: 0.8}},
		clock:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewBaselineService(f.profiles, f.checkIns, f.metrics, f.classifier,
		14, minSamples, time.Second, zap.NewNop()).(*baselineService)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *baselineFixture) addCheckIn(t *testing.T, daysAgo int, mood int, activities ...models.Activity) {
	t.Helper()
	raw, err := json.Marshal(activities)
	require.NoError(t, err)
	f.checkIns.checkIns = append(f.checkIns.checkIns, &models.CheckIn{
		ID:            fmt.Sprintf("c-%d", len(f.checkIns.checkIns)+1),
		UserID:        1,
		Timestamp:     f.clock.AddDate(0, 0, -daysAgo),
		MoodScore:     mood,
		ActivitiesRaw: raw,
	})
}

func TestEstablishRequiresMinimumSamples(t *testing.T) {
	f := newBaselineFixture(t, 3)
	f.addCheckIn(t, 1, 4)

	_, err := f.svc.Establish(context.Background(), 1)
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, f.profiles.profiles)
	assert.Equal(t, 0, f.classifier.calls)
}

func TestEstablishIgnoresDataOutsideWindow(t *testing.T) {
	f := newBaselineFixture(t, 1)
	f.addCheckIn(t, 20, 4)

	_, err := f.svc.Establish(context.Background(), 1)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestEstablishAveragesWindow(t *testing.T) {
	f := newBaselineFixture(t, 1)
	f.addCheckIn(t, 2, 3, models.Activity{Type: "walking", Level: models.ActivityLevelLow})
	f.addCheckIn(t, 1, 5, models.Activity{Type: "running", Level: models.ActivityLevelHigh})
	f.metrics.metrics = append(f.metrics.metrics,
		&models.HealthMetric{UserID: 1, Day: f.clock.AddDate(0, 0, -2), SleepHours: 7, SleepQuality: 8, Steps: 8000, ExerciseMinutes: 20},
		&models.HealthMetric{UserID: 1, Day: f.clock.AddDate(0, 0, -1), SleepHours: 8, SleepQuality: 6, Steps: 10000, ExerciseMinutes: 40},
	)

	profile, err := f.svc.Establish(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 4.0, profile.AverageMoodScore)
	assert.Equal(t, 2.0, profile.ActivityLevel)
	assert.Equal(t, 7.5, profile.SleepHours)
	assert.Equal(t, 7.0, profile.SleepQuality)
	assert.Equal(t, 9000.0, profile.AverageStepsPerDay)
	assert.Equal(t, 210.0, profile.ExerciseMinutesPerWeek)
	assert.Equal(t, 0.8, profile.ConfidenceScore)
	assert.NotNil(t, profile.RawAssessment)

	active, err := f.svc.Active(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, active.ID)
}

func TestEstablishNeutralLabelOnClassifierOutage(t *testing.T) {
	f := newBaselineFixture(t, 1)
	f.classifier.err = errors.New("classifier down")
	f.addCheckIn(t, 1, 4)

	profile, err := f.svc.Establish(context.Background(), 1)
	require.NoError(t, err, "a labeling outage must not block establishment")
	assert.Equal(t, 0.5, profile.ConfidenceScore)
	assert.Nil(t, profile.RawAssessment)
	assert.Len(t, f.profiles.profiles, 1)
}

func TestEstablishClampsConfidence(t *testing.T) {
	f := newBaselineFixture(t, 1)
	f.classifier.response = &classifier_client.ClassifyResponse{Status: models.StatusStable, Confidence: 1.7}
	f.addCheckIn(t, 1, 4)

	profile, err := f.svc.Establish(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, profile.ConfidenceScore)
}

func TestEstablishSupersedesPreviousBaseline(t *testing.T) {
	f := newBaselineFixture(t, 1)
	f.addCheckIn(t, 1, 2)

	first, err := f.svc.Establish(context.Background(), 1)
	require.NoError(t, err)

	f.clock = f.clock.Add(48 * time.Hour)
	f.addCheckIn(t, 0, 5)

	second, err := f.svc.Establish(context.Background(), 1)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	active, err := f.svc.Active(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	history, err := f.svc.History(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestActiveWithoutBaseline(t *testing.T) {
	f := newBaselineFixture(t, 1)

	_, err := f.svc.Active(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
