package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type bookingApplier interface {
	ListFor(ctx context.Context, user *models.User, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error)
	Apply(ctx context.Context, user *models.User, bookingID string, req TransitionRequest) (*models.Booking, error)
}

type transitionNotifier interface {
	NotifyTransition(userID, bookingID string, notice Notice)
}

// Notice is the user-visible outcome of an optimistic transition attempt.
type Notice struct {
	Level   string `json:"level"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// BookingView is a principal's refreshed projection together with the notice
// produced by the last transition attempt.
type BookingView struct {
	Bookings []models.Booking `json:"bookings"`
	Notice   Notice           `json:"notice"`
}

// sessionView is one principal's disposable cached projection of the booking
// store, plus per-booking in-flight markers.
type sessionView struct {
	mu       sync.Mutex
	filter   models.BookingFilter
	bookings []models.Booking
	inflight map[string]bool
}

// BookingViewService keeps a per-principal cached projection of the booking
// list and wraps state changes in the optimistic-update discipline: the local
// view changes synchronously, the store call runs under a timeout, and any
// failure replaces the view wholesale by re-fetching canonical state. There is
// no cross-principal coordination; correctness against the other principal
// rests on the store's compare-and-swap transition.
type BookingViewService struct {
	bookings bookingApplier
	notifier transitionNotifier
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*sessionView
}

// NewBookingViewService instantiates BookingViewService. The notifier may be nil.
func NewBookingViewService(bookings bookingApplier, notifier transitionNotifier, timeout time.Duration, logger *zap.Logger) *BookingViewService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingViewService{
		bookings: bookings,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		sessions: make(map[string]*sessionView),
	}
}

func (s *BookingViewService) session(userID string) *sessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv, ok := s.sessions[userID]
	if !ok {
		sv = &sessionView{inflight: make(map[string]bool)}
		s.sessions[userID] = sv
	}
	return sv
}

// Load fetches the canonical booking list for the principal and replaces the
// cached projection.
func (s *BookingViewService) Load(ctx context.Context, user *models.User, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, pagination, err := s.bookings.ListFor(ctx, user, filter)
	if err != nil {
		return nil, nil, err
	}

	sv := s.session(user.ID)
	sv.mu.Lock()
	sv.filter = filter
	sv.bookings = append([]models.Booking(nil), bookings...)
	sv.mu.Unlock()

	return bookings, pagination, nil
}

// PerformOptimistic applies the requested transition to the caller's local
// view, issues the store call, and reconciles by wholesale re-fetch when the
// call fails for any reason. Two concurrent attempts on the same booking by
// the same caller are serialized: the second is rejected while the first is
// in flight.
func (s *BookingViewService) PerformOptimistic(ctx context.Context, user *models.User, bookingID string, req TransitionRequest) (*BookingView, error) {
	sv := s.session(user.ID)

	sv.mu.Lock()
	if sv.inflight[bookingID] {
		sv.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a transition for this booking is already being processed")
	}
	sv.inflight[bookingID] = true
	s.projectTransition(sv, bookingID, req.ToState)
	sv.mu.Unlock()

	defer func() {
		sv.mu.Lock()
		delete(sv.inflight, bookingID)
		sv.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	booking, err := s.bookings.Apply(callCtx, user, bookingID, req)
	cancel()

	if err == nil {
		sv.mu.Lock()
		s.replaceBooking(sv, booking)
		view := s.snapshot(sv)
		sv.mu.Unlock()

		notice := Notice{
			Level:   "success",
			Message: fmt.Sprintf("booking %s", strings.ToLower(string(req.ToState))),
		}
		s.notify(user.ID, bookingID, notice)
		return &BookingView{Bookings: view, Notice: notice}, nil
	}

	// The exact conflicting edit is unknown, so never patch the optimistic
	// view back; replace it wholesale with canonical state.
	appErr := appErrors.FromError(err)
	s.logger.Warn("optimistic transition failed, reconciling view",
		zap.String("booking_id", bookingID),
		zap.String("to_state", string(req.ToState)),
		zap.String("code", appErr.Code),
		zap.Error(err))

	sv.mu.Lock()
	filter := sv.filter
	sv.mu.Unlock()

	canonical, _, listErr := s.bookings.ListFor(ctx, user, filter)
	if listErr != nil {
		return nil, appErrors.Wrap(listErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile booking view")
	}

	sv.mu.Lock()
	sv.bookings = append([]models.Booking(nil), canonical...)
	view := s.snapshot(sv)
	sv.mu.Unlock()

	notice := Notice{Level: "error", Code: appErr.Code, Message: noticeMessage(appErr, req.ToState)}
	s.notify(user.ID, bookingID, notice)
	return &BookingView{Bookings: view, Notice: notice}, nil
}

// projectTransition updates the local projection before the store call
// returns: a booking leaving the filtered state is removed, anything else is
// relabelled in place. Caller holds sv.mu.
func (s *BookingViewService) projectTransition(sv *sessionView, bookingID string, to models.BookingState) {
	for i := range sv.bookings {
		if sv.bookings[i].ID != bookingID {
			continue
		}
		if sv.filter.State != "" && sv.filter.State != to {
			sv.bookings = append(sv.bookings[:i], sv.bookings[i+1:]...)
		} else {
			sv.bookings[i].State = to
		}
		return
	}
}

// replaceBooking swaps the canonical record into the projection when still
// present. Caller holds sv.mu.
func (s *BookingViewService) replaceBooking(sv *sessionView, booking *models.Booking) {
	if booking == nil {
		return
	}
	for i := range sv.bookings {
		if sv.bookings[i].ID == booking.ID {
			sv.bookings[i] = *booking
			return
		}
	}
}

func (s *BookingViewService) snapshot(sv *sessionView) []models.Booking {
	return append([]models.Booking(nil), sv.bookings...)
}

func (s *BookingViewService) notify(userID, bookingID string, notice Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyTransition(userID, bookingID, notice)
}

func noticeMessage(appErr *appErrors.Error, to models.BookingState) string {
	action := strings.ToLower(string(to))
	switch appErr.Code {
	case appErrors.ErrTimeout.Code, appErrors.ErrConnection.Code:
		return fmt.Sprintf("could not reach the booking service to %s this booking, the list has been refreshed", transitionVerb(to))
	case appErrors.ErrInvalidTransition.Code:
		return fmt.Sprintf("the booking could not be %s: %s", action, appErr.Message)
	default:
		return appErr.Message
	}
}

func transitionVerb(to models.BookingState) string {
	switch to {
	case models.BookingConfirmed:
		return "confirm"
	case models.BookingCancelled:
		return "cancel"
	case models.BookingCompleted:
		return "complete"
	default:
		return "update"
	}
}
