package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type entryRepoMock struct {
	items map[string]*models.WeeklyScheduleEntry
}

func newEntryRepoMock() *entryRepoMock {
	return &entryRepoMock{items: make(map[string]*models.WeeklyScheduleEntry)}
}

func (m *entryRepoMock) ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleEntry, error) {
	var out []models.WeeklyScheduleEntry
	for _, e := range m.items {
		if e.ProviderID == providerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *entryRepoMock) FindByID(ctx context.Context, id string) (*models.WeeklyScheduleEntry, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *entryRepoMock) Create(ctx context.Context, entry *models.WeeklyScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *entryRepoMock) Update(ctx context.Context, entry *models.WeeklyScheduleEntry) error {
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *entryRepoMock) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type exceptionRepoMock struct {
	items map[string]*models.ScheduleException
}

func newExceptionRepoMock() *exceptionRepoMock {
	return &exceptionRepoMock{items: make(map[string]*models.ScheduleException)}
}

func (m *exceptionRepoMock) ListByProvider(ctx context.Context, providerID string) ([]models.ScheduleException, error) {
	var out []models.ScheduleException
	for _, e := range m.items {
		if e.ProviderID == providerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *exceptionRepoMock) FindByID(ctx context.Context, id string) (*models.ScheduleException, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *exceptionRepoMock) Create(ctx context.Context, exc *models.ScheduleException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	cp := *exc
	m.items[exc.ID] = &cp
	return nil
}

func (m *exceptionRepoMock) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type invalidatorMock struct {
	patterns []string
}

func (m *invalidatorMock) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newScheduleService(entries *entryRepoMock, exceptions *exceptionRepoMock, cache *invalidatorMock) *ScheduleService {
	var invalidator scheduleCacheInvalidator
	if cache != nil {
		invalidator = cache
	}
	return NewScheduleService(entries, exceptions, invalidator, validator.New(), zap.NewNop())
}

func TestScheduleServiceCreateEntry(t *testing.T) {
	entries := newEntryRepoMock()
	cache := &invalidatorMock{}
	svc := newScheduleService(entries, newExceptionRepoMock(), cache)

	entry, err := svc.CreateEntry(context.Background(), "prov-1", UpsertScheduleEntryRequest{
		DayOfWeek: 1,
		StartTime: "09:00",
		EndTime:   "17:00",
	})
	require.NoError(t, err)
	assert.True(t, entry.Active)
	assert.Equal(t, "prov-1", entry.ProviderID)
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "availability:prov-1:*", cache.patterns[0])
}

func TestScheduleServiceCreateEntryWithoutCache(t *testing.T) {
	svc := newScheduleService(newEntryRepoMock(), newExceptionRepoMock(), nil)

	entry, err := svc.CreateEntry(context.Background(), "prov-1", UpsertScheduleEntryRequest{
		DayOfWeek: 2,
		StartTime: "08:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.True(t, entry.Active)
}

func TestScheduleServiceCreateEntryRejectsBadInterval(t *testing.T) {
	svc := newScheduleService(newEntryRepoMock(), newExceptionRepoMock(), nil)

	cases := []UpsertScheduleEntryRequest{
		{DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:00"},
		{DayOfWeek: 1, StartTime: "9am", EndTime: "5pm"},
	}
	for _, req := range cases {
		_, err := svc.CreateEntry(context.Background(), "prov-1", req)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	}
}

func TestScheduleServiceUpdateEntryOwnership(t *testing.T) {
	entries := newEntryRepoMock()
	entries.items["e1"] = &models.WeeklyScheduleEntry{ID: "e1", ProviderID: "prov-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Active: true}
	svc := newScheduleService(entries, newExceptionRepoMock(), nil)

	_, err := svc.UpdateEntry(context.Background(), "prov-2", "e1", UpsertScheduleEntryRequest{
		DayOfWeek: 2, StartTime: "10:00", EndTime: "16:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.UpdateEntry(context.Background(), "prov-1", "e1", UpsertScheduleEntryRequest{
		DayOfWeek: 2, StartTime: "10:00", EndTime: "16:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.DayOfWeek)
	assert.Equal(t, "10:00", updated.StartTime)
}

func TestScheduleServiceDeleteEntry(t *testing.T) {
	entries := newEntryRepoMock()
	entries.items["e1"] = &models.WeeklyScheduleEntry{ID: "e1", ProviderID: "prov-1"}
	cache := &invalidatorMock{}
	svc := newScheduleService(entries, newExceptionRepoMock(), cache)

	require.NoError(t, svc.DeleteEntry(context.Background(), "prov-1", "e1"))
	assert.Empty(t, entries.items)
	assert.Len(t, cache.patterns, 1)

	err := svc.DeleteEntry(context.Background(), "prov-1", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceCreateExceptionClosed(t *testing.T) {
	exceptions := newExceptionRepoMock()
	svc := newScheduleService(newEntryRepoMock(), exceptions, nil)

	exc, err := svc.CreateException(context.Background(), "prov-1", CreateExceptionRequest{
		Date:   "2025-12-25",
		Kind:   models.ExceptionClosed,
		Reason: "holiday",
	})
	require.NoError(t, err)
	assert.Nil(t, exc.StartTime)
	assert.Nil(t, exc.EndTime)
	require.NotNil(t, exc.Reason)
	assert.Equal(t, "holiday", *exc.Reason)
}

func TestScheduleServiceCreateExceptionSpecialHours(t *testing.T) {
	svc := newScheduleService(newEntryRepoMock(), newExceptionRepoMock(), nil)

	// SPECIAL_HOURS without an interval must be rejected.
	_, err := svc.CreateException(context.Background(), "prov-1", CreateExceptionRequest{
		Date: "2025-12-24",
		Kind: models.ExceptionSpecialHours,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	exc, err := svc.CreateException(context.Background(), "prov-1", CreateExceptionRequest{
		Date:      "2025-12-24",
		Kind:      models.ExceptionSpecialHours,
		StartTime: "10:00",
		EndTime:   "14:00",
	})
	require.NoError(t, err)
	require.NotNil(t, exc.StartTime)
	assert.Equal(t, "10:00", *exc.StartTime)
}

func TestScheduleServiceCreateExceptionRejectsBadDate(t *testing.T) {
	svc := newScheduleService(newEntryRepoMock(), newExceptionRepoMock(), nil)

	_, err := svc.CreateException(context.Background(), "prov-1", CreateExceptionRequest{
		Date: "25-12-2025",
		Kind: models.ExceptionClosed,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleServiceDeleteExceptionOwnership(t *testing.T) {
	exceptions := newExceptionRepoMock()
	exceptions.items["x1"] = &models.ScheduleException{ID: "x1", ProviderID: "prov-1", Kind: models.ExceptionClosed}
	svc := newScheduleService(newEntryRepoMock(), exceptions, nil)

	err := svc.DeleteException(context.Background(), "prov-2", "x1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.DeleteException(context.Background(), "prov-1", "x1"))
	assert.Empty(t, exceptions.items)
}
