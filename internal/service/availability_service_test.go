package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type scheduleRepoStub struct {
	entries map[int][]models.WeeklyScheduleEntry
	err     error
}

func (m *scheduleRepoStub) ListActiveForDay(ctx context.Context, providerID string, dayOfWeek int) ([]models.WeeklyScheduleEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[dayOfWeek], nil
}

type exceptionRepoStub struct {
	exceptions map[string][]models.ScheduleException
}

func (m *exceptionRepoStub) ListForDate(ctx context.Context, providerID, date string) ([]models.ScheduleException, error) {
	return m.exceptions[date], nil
}

type cacheStub struct {
	stored map[string]*models.DayAvailability
	sets   int
}

func (m *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.stored[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.DayAvailability) = *cached
	return nil
}

func (m *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.stored == nil {
		m.stored = make(map[string]*models.DayAvailability)
	}
	m.sets++
	m.stored[key] = value.(*models.DayAvailability)
	return nil
}

func str(s string) *string { return &s }

// 2025-03-03 is a Monday (weekday 1).
const mondayDate = "2025-03-03"

func TestAvailabilityResolveBaseline(t *testing.T) {
	schedules := &scheduleRepoStub{entries: map[int][]models.WeeklyScheduleEntry{
		1: {
			{ProviderID: "p1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Active: true},
			{ProviderID: "p1", DayOfWeek: 1, StartTime: "13:00", EndTime: "17:00", Active: true},
		},
	}}
	exceptions := &exceptionRepoStub{}
	svc := NewAvailabilityService(schedules, exceptions, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Equal(t, "p1", result.ProviderID)
	require.Len(t, result.Open, 2)
	assert.Equal(t, models.TimeRange{Start: "09:00", End: "12:00"}, result.Open[0])
	assert.Equal(t, models.TimeRange{Start: "13:00", End: "17:00"}, result.Open[1])
}

func TestAvailabilityResolveNoScheduleIsClosed(t *testing.T) {
	svc := NewAvailabilityService(&scheduleRepoStub{}, &exceptionRepoStub{}, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Empty(t, result.Open)
	assert.NotNil(t, result.Open)
}

func TestAvailabilityResolveClosedException(t *testing.T) {
	schedules := &scheduleRepoStub{entries: map[int][]models.WeeklyScheduleEntry{
		1: {{ProviderID: "p1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Active: true}},
	}}
	exceptions := &exceptionRepoStub{exceptions: map[string][]models.ScheduleException{
		mondayDate: {{ProviderID: "p1", Date: mondayDate, Kind: models.ExceptionClosed}},
	}}
	svc := NewAvailabilityService(schedules, exceptions, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Empty(t, result.Open)
}

func TestAvailabilityResolveSpecialHoursReplacesBaseline(t *testing.T) {
	schedules := &scheduleRepoStub{entries: map[int][]models.WeeklyScheduleEntry{
		1: {
			{ProviderID: "p1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Active: true},
			{ProviderID: "p1", DayOfWeek: 1, StartTime: "13:00", EndTime: "17:00", Active: true},
		},
	}}
	exceptions := &exceptionRepoStub{exceptions: map[string][]models.ScheduleException{
		mondayDate: {{ProviderID: "p1", Date: mondayDate, Kind: models.ExceptionSpecialHours, StartTime: str("10:00"), EndTime: str("14:00")}},
	}}
	svc := NewAvailabilityService(schedules, exceptions, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	require.Len(t, result.Open, 1)
	assert.Equal(t, models.TimeRange{Start: "10:00", End: "14:00"}, result.Open[0])
}

func TestAvailabilityResolveNewestExceptionWins(t *testing.T) {
	// The repository orders newest-created first; only that one applies.
	exceptions := &exceptionRepoStub{exceptions: map[string][]models.ScheduleException{
		mondayDate: {
			{ID: "e2", Kind: models.ExceptionSpecialHours, StartTime: str("10:00"), EndTime: str("11:00")},
			{ID: "e1", Kind: models.ExceptionClosed},
		},
	}}
	svc := NewAvailabilityService(&scheduleRepoStub{}, exceptions, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	require.Len(t, result.Open, 1)
	assert.Equal(t, "10:00", result.Open[0].Start)
}

func TestAvailabilityResolveSpecialHoursWithoutIntervalIsClosed(t *testing.T) {
	exceptions := &exceptionRepoStub{exceptions: map[string][]models.ScheduleException{
		mondayDate: {{Kind: models.ExceptionSpecialHours}},
	}}
	svc := NewAvailabilityService(&scheduleRepoStub{}, exceptions, nil, 0, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Empty(t, result.Open)
}

func TestAvailabilityResolveCaching(t *testing.T) {
	schedules := &scheduleRepoStub{entries: map[int][]models.WeeklyScheduleEntry{
		1: {{ProviderID: "p1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Active: true}},
	}}
	cache := &cacheStub{}
	svc := NewAvailabilityService(schedules, &exceptionRepoStub{}, cache, time.Minute, nil, zap.NewNop())

	first, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from cache even if the backing schedule changes.
	schedules.entries = nil
	second, err := svc.Resolve(context.Background(), "p1", mondayDate)
	require.NoError(t, err)
	assert.Equal(t, first.Open, second.Open)
	assert.Equal(t, 1, cache.sets)
}

func TestAvailabilityResolveRejectsBadInput(t *testing.T) {
	svc := NewAvailabilityService(&scheduleRepoStub{}, &exceptionRepoStub{}, nil, 0, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "", mondayDate)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Resolve(context.Background(), "p1", "03/03/2025")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
