package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type applierMock struct {
	mu       sync.Mutex
	bookings []models.Booking
	applyErr error
	applied  int
	listed   int
	block    chan struct{}
}

func (m *applierMock) ListFor(ctx context.Context, user *models.User, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	out := make([]models.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		if filter.State != "" && b.State != filter.State {
			continue
		}
		out = append(out, b)
	}
	return out, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(out)}, nil
}

func (m *applierMock) Apply(ctx context.Context, user *models.User, bookingID string, req TransitionRequest) (*models.Booking, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied++
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	for i := range m.bookings {
		if m.bookings[i].ID == bookingID {
			m.bookings[i].State = req.ToState
			cp := m.bookings[i]
			return &cp, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
}

type notifierMock struct {
	mu      sync.Mutex
	notices []Notice
}

func (m *notifierMock) NotifyTransition(userID, bookingID string, notice Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice)
}

func viewFixture(applyErr error) (*applierMock, *notifierMock, *BookingViewService) {
	applier := &applierMock{
		bookings: []models.Booking{
			{ID: "b1", ClientID: "client-1", ProviderID: "prov-1", State: models.BookingPending},
			{ID: "b2", ClientID: "client-1", ProviderID: "prov-1", State: models.BookingConfirmed},
		},
		applyErr: applyErr,
	}
	notifier := &notifierMock{}
	svc := NewBookingViewService(applier, notifier, time.Second, zap.NewNop())
	return applier, notifier, svc
}

func TestBookingViewOptimisticSuccess(t *testing.T) {
	applier, notifier, svc := viewFixture(nil)

	_, _, err := svc.Load(context.Background(), testProvider, models.BookingFilter{})
	require.NoError(t, err)

	view, err := svc.PerformOptimistic(context.Background(), testProvider, "b1", TransitionRequest{ToState: models.BookingConfirmed})
	require.NoError(t, err)
	assert.Equal(t, "success", view.Notice.Level)
	require.Len(t, view.Bookings, 2)
	assert.Equal(t, models.BookingConfirmed, view.Bookings[0].State)

	// Success keeps the local projection; no reconciliation fetch happened.
	assert.Equal(t, 1, applier.listed)
	assert.Equal(t, 1, applier.applied)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "success", notifier.notices[0].Level)
}

func TestBookingViewOptimisticFailureReloadsWholesale(t *testing.T) {
	applyErr := appErrors.Clone(appErrors.ErrInvalidTransition, "the booking changed concurrently, please refresh")
	applier, notifier, svc := viewFixture(applyErr)

	_, _, err := svc.Load(context.Background(), testProvider, models.BookingFilter{})
	require.NoError(t, err)

	// Canonical state moved underneath the caller.
	applier.mu.Lock()
	applier.bookings[0].State = models.BookingCancelled
	applier.mu.Unlock()

	view, err := svc.PerformOptimistic(context.Background(), testProvider, "b1", TransitionRequest{ToState: models.BookingConfirmed})
	require.NoError(t, err)
	assert.Equal(t, "error", view.Notice.Level)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, view.Notice.Code)

	// The view is canonical truth, not the optimistic projection patched back.
	require.Len(t, view.Bookings, 2)
	assert.Equal(t, models.BookingCancelled, view.Bookings[0].State)
	assert.Equal(t, 2, applier.listed)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "error", notifier.notices[0].Level)
}

func TestBookingViewOptimisticTimeoutNotice(t *testing.T) {
	applyErr := appErrors.Wrap(context.DeadlineExceeded, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	_, _, svc := viewFixture(applyErr)

	_, _, err := svc.Load(context.Background(), testProvider, models.BookingFilter{})
	require.NoError(t, err)

	view, err := svc.PerformOptimistic(context.Background(), testProvider, "b2", TransitionRequest{ToState: models.BookingCompleted})
	require.NoError(t, err)
	assert.Equal(t, appErrors.ErrTimeout.Code, view.Notice.Code)
	assert.Contains(t, view.Notice.Message, "could not reach the booking service")
}

func TestBookingViewOptimisticFilteredStateDropsBooking(t *testing.T) {
	applier, _, svc := viewFixture(nil)

	bookings, _, err := svc.Load(context.Background(), testProvider, models.BookingFilter{State: models.BookingPending})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b1", bookings[0].ID)

	view, err := svc.PerformOptimistic(context.Background(), testProvider, "b1", TransitionRequest{ToState: models.BookingConfirmed})
	require.NoError(t, err)

	// b1 left the filtered state, so it disappears from the projection.
	assert.Empty(t, view.Bookings)
	assert.Equal(t, 1, applier.applied)
}

func TestBookingViewSerializesPerBooking(t *testing.T) {
	applier, _, svc := viewFixture(nil)
	applier.block = make(chan struct{})

	_, _, err := svc.Load(context.Background(), testProvider, models.BookingFilter{})
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.PerformOptimistic(context.Background(), testProvider, "b1", TransitionRequest{ToState: models.BookingConfirmed})
		firstDone <- err
	}()

	// Wait until the first attempt marks the booking in flight.
	require.Eventually(t, func() bool {
		sv := svc.session(testProvider.ID)
		sv.mu.Lock()
		defer sv.mu.Unlock()
		return sv.inflight["b1"]
	}, time.Second, 5*time.Millisecond)

	_, err = svc.PerformOptimistic(context.Background(), testProvider, "b1", TransitionRequest{ToState: models.BookingConfirmed})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	close(applier.block)
	require.NoError(t, <-firstDone)

	// The marker is cleared once the first attempt finishes.
	sv := svc.session(testProvider.ID)
	sv.mu.Lock()
	defer sv.mu.Unlock()
	assert.False(t, sv.inflight["b1"])
}
