package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	"github.com/sevaproject/booking-api/internal/repository"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type bookingStoreRepository interface {
	ListForClient(ctx context.Context, clientID string, filter models.BookingFilter) ([]models.Booking, int, error)
	ListForProvider(ctx context.Context, providerID string, filter models.BookingFilter) ([]models.Booking, int, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Transition(ctx context.Context, id string, from, to models.BookingState, cancelReason, completionNote *string) (*models.Booking, error)
}

type availabilityResolver interface {
	Resolve(ctx context.Context, providerID, date string) (*models.DayAvailability, error)
}

type transitionEdge struct {
	from models.BookingState
	to   models.BookingState
}

// allowedTransitions encodes the booking lifecycle: which edges exist and
// which perspective may request each one.
var allowedTransitions = map[transitionEdge][]models.Perspective{
	{models.BookingPending, models.BookingConfirmed}:   {models.PerspectiveProvider},
	{models.BookingPending, models.BookingCancelled}:   {models.PerspectiveClient, models.PerspectiveProvider},
	{models.BookingConfirmed, models.BookingCancelled}: {models.PerspectiveClient, models.PerspectiveProvider},
	{models.BookingConfirmed, models.BookingCompleted}: {models.PerspectiveProvider},
}

// CreateBookingRequest describes payload for creating a booking.
type CreateBookingRequest struct {
	ServiceID   string `json:"service_id" validate:"required"`
	ServiceName string `json:"service_name" validate:"required"`
	ProviderID  string `json:"provider_id" validate:"required"`
	ContactName string `json:"contact_name"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// TransitionRequest describes a requested state change on one booking.
type TransitionRequest struct {
	ToState models.BookingState `json:"to_state" validate:"required,oneof=CONFIRMED CANCELLED COMPLETED"`
	Reason  string              `json:"reason"`
	Note    string              `json:"note"`
}

// BookingService encodes the booking lifecycle and creation rules. State
// changes are persisted through the store's compare-and-swap transition call,
// so a concurrent edit by the other principal surfaces as InvalidTransition.
type BookingService struct {
	repo         bookingStoreRepository
	availability availabilityResolver
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewBookingService instantiates BookingService.
func NewBookingService(repo bookingStoreRepository, availability availabilityResolver, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, availability: availability, validator: validate, metrics: metrics, logger: logger}
}

// ListFor returns the bookings visible to the acting principal.
func (s *BookingService) ListFor(ctx context.Context, user *models.User, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	var bookings []models.Booking
	var total int
	var err error
	switch user.Role {
	case models.RoleClient:
		bookings, total, err = s.repo.ListForClient(ctx, user.ID, filter)
	case models.RoleProvider:
		bookings, total, err = s.repo.ListForProvider(ctx, user.ID, filter)
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only clients and providers hold bookings")
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// Get loads a booking the acting principal participates in.
func (s *BookingService) Get(ctx context.Context, user *models.User, id string) (*models.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !participates(user, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to other principals")
	}
	return booking, nil
}

// Create opens a new PENDING booking for the acting client after checking the
// requested slot against the provider's resolved availability.
func (s *BookingService) Create(ctx context.Context, client *models.User, req CreateBookingRequest) (*models.Booking, error) {
	if client.Role != models.RoleClient {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients may create bookings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	availability, err := s.availability.Resolve(ctx, req.ProviderID, req.Date)
	if err != nil {
		return nil, err
	}

	booking := models.Booking{
		ServiceID:   req.ServiceID,
		ServiceName: req.ServiceName,
		ClientID:    client.ID,
		ClientName:  client.CompanyName,
		ProviderID:  req.ProviderID,
		ContactName: req.ContactName,
		Date:        req.Date,
	}
	if booking.ClientName == "" {
		booking.ClientName = client.FullName
	}

	if req.StartTime != "" || req.EndTime != "" {
		if err := ValidateInterval(req.StartTime, req.EndTime); err != nil {
			return nil, err
		}
		if !fitsAvailability(availability.Open, req.StartTime, req.EndTime) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "the requested slot is outside the provider's availability")
		}
		start, end := req.StartTime, req.EndTime
		booking.StartTime = &start
		booking.EndTime = &end
	} else if len(availability.Open) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the provider is not available on this date")
	}

	if err := s.repo.Create(ctx, &booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	return &booking, nil
}

// Apply requests a state transition on a booking on behalf of a principal. It
// is idempotent for a booking already in the requested state, and turns a lost
// compare-and-swap race into InvalidTransition for the caller to reconcile.
func (s *BookingService) Apply(ctx context.Context, user *models.User, bookingID string, req TransitionRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	actor := user.Role.Perspective()
	if actor == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients and providers may transition bookings")
	}

	booking, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, s.classifyStoreError(err, "failed to load booking")
	}
	if !participates(user, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to other principals")
	}

	// Repeated identical requests against a booking that already reached the
	// target state succeed without touching the store, so retried optimistic
	// call sequences stay quiet.
	if booking.State == req.ToState {
		return booking, nil
	}

	edge := transitionEdge{from: booking.State, to: req.ToState}
	actors, ok := allowedTransitions[edge]
	if !ok {
		s.countTransition(req.ToState, "rejected")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition booking from %s to %s", edge.from, edge.to))
	}
	if !actorAllowed(actors, actor) {
		s.countTransition(req.ToState, "rejected")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s may not transition booking from %s to %s", strings.ToLower(string(actor)), edge.from, edge.to))
	}

	var cancelReason, completionNote *string
	switch req.ToState {
	case models.BookingCancelled:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a cancellation reason is required")
		}
		cancelReason = &reason
	case models.BookingCompleted:
		if note := strings.TrimSpace(req.Note); note != "" {
			completionNote = &note
		} else {
			s.logger.Info("booking completed without observation", zap.String("booking_id", bookingID))
		}
	}

	updated, err := s.repo.Transition(ctx, bookingID, edge.from, edge.to, cancelReason, completionNote)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			s.countTransition(req.ToState, "lost_race")
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "the booking changed concurrently, please refresh")
		}
		s.countTransition(req.ToState, "error")
		return nil, s.classifyStoreError(err, "failed to persist transition")
	}

	s.countTransition(req.ToState, "applied")
	s.logger.Info("booking transitioned",
		zap.String("booking_id", bookingID),
		zap.String("from", string(edge.from)),
		zap.String("to", string(edge.to)),
		zap.String("actor", string(actor)))
	return updated, nil
}

func (s *BookingService) countTransition(to models.BookingState, outcome string) {
	if s.metrics != nil {
		s.metrics.IncBookingTransition(string(to), outcome)
	}
}

// classifyStoreError separates timeouts and transport failures from the rest
// so the controller can show a connection-specific message.
func (s *BookingService) classifyStoreError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	}
	if errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrConnection.Code, appErrors.ErrConnection.Status, appErrors.ErrConnection.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func actorAllowed(actors []models.Perspective, actor models.Perspective) bool {
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

func participates(user *models.User, booking *models.Booking) bool {
	switch user.Role {
	case models.RoleClient:
		return booking.ClientID == user.ID
	case models.RoleProvider:
		return booking.ProviderID == user.ID
	case models.RoleAdmin:
		return true
	default:
		return false
	}
}

// fitsAvailability reports whether [start, end) lies entirely inside one of
// the resolved open intervals.
func fitsAvailability(open []models.TimeRange, start, end string) bool {
	startMin, err := ParseClock(start)
	if err != nil {
		return false
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return false
	}
	for _, r := range open {
		openStart, err := ParseClock(r.Start)
		if err != nil {
			continue
		}
		openEnd, err := ParseClock(r.End)
		if err != nil {
			continue
		}
		if startMin >= openStart && endMin <= openEnd {
			return true
		}
	}
	return false
}
