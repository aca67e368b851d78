package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type scheduleEntryRepository interface {
	ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleEntry, error)
	FindByID(ctx context.Context, id string) (*models.WeeklyScheduleEntry, error)
	Create(ctx context.Context, entry *models.WeeklyScheduleEntry) error
	Update(ctx context.Context, entry *models.WeeklyScheduleEntry) error
	Delete(ctx context.Context, id string) error
}

type scheduleExceptionRepository interface {
	ListByProvider(ctx context.Context, providerID string) ([]models.ScheduleException, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleException, error)
	Create(ctx context.Context, exc *models.ScheduleException) error
	Delete(ctx context.Context, id string) error
}

type scheduleCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// UpsertScheduleEntryRequest describes payload for creating or updating a weekly entry.
type UpsertScheduleEntryRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Active    *bool  `json:"active"`
}

// CreateExceptionRequest describes payload for punching a date exception.
type CreateExceptionRequest struct {
	Date      string               `json:"date" validate:"required"`
	Kind      models.ExceptionKind `json:"kind" validate:"required,oneof=CLOSED SPECIAL_HOURS"`
	StartTime string               `json:"start_time"`
	EndTime   string               `json:"end_time"`
	Reason    string               `json:"reason"`
}

// ScheduleService manages a provider's weekly schedule and its exceptions.
// Every write runs the interval validator before persisting and invalidates
// the provider's cached availability.
type ScheduleService struct {
	entries    scheduleEntryRepository
	exceptions scheduleExceptionRepository
	cache      scheduleCacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(entries scheduleEntryRepository, exceptions scheduleExceptionRepository, cache scheduleCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{entries: entries, exceptions: exceptions, cache: cache, validator: validate, logger: logger}
}

// ListEntries returns all weekly entries for a provider.
func (s *ScheduleService) ListEntries(ctx context.Context, providerID string) ([]models.WeeklyScheduleEntry, error) {
	entries, err := s.entries.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	return entries, nil
}

// CreateEntry inserts a weekly entry after interval validation.
func (s *ScheduleService) CreateEntry(ctx context.Context, providerID string, req UpsertScheduleEntryRequest) (*models.WeeklyScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}
	if err := ValidateDayOfWeek(req.DayOfWeek); err != nil {
		return nil, err
	}
	if err := ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	entry := models.WeeklyScheduleEntry{
		ProviderID: providerID,
		DayOfWeek:  req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Active:     active,
	}
	if err := s.entries.Create(ctx, &entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule entry")
	}
	s.invalidateAvailability(ctx, providerID)
	return &entry, nil
}

// UpdateEntry rewrites an existing weekly entry owned by the provider.
func (s *ScheduleService) UpdateEntry(ctx context.Context, providerID, entryID string, req UpsertScheduleEntryRequest) (*models.WeeklyScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}
	if err := ValidateDayOfWeek(req.DayOfWeek); err != nil {
		return nil, err
	}
	if err := ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	existing, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	if existing.ProviderID != providerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule entry belongs to another provider")
	}

	existing.DayOfWeek = req.DayOfWeek
	existing.StartTime = req.StartTime
	existing.EndTime = req.EndTime
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if err := s.entries.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule entry")
	}
	s.invalidateAvailability(ctx, providerID)
	return existing, nil
}

// DeleteEntry removes a weekly entry owned by the provider.
func (s *ScheduleService) DeleteEntry(ctx context.Context, providerID, entryID string) error {
	existing, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	if existing.ProviderID != providerID {
		return appErrors.Clone(appErrors.ErrForbidden, "schedule entry belongs to another provider")
	}
	if err := s.entries.Delete(ctx, entryID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
	}
	s.invalidateAvailability(ctx, providerID)
	return nil
}

// ListExceptions returns all exceptions for a provider.
func (s *ScheduleService) ListExceptions(ctx context.Context, providerID string) ([]models.ScheduleException, error) {
	exceptions, err := s.exceptions.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule exceptions")
	}
	return exceptions, nil
}

// CreateException punches a date-specific override. SPECIAL_HOURS payloads run
// the interval validator; CLOSED ignores any provided times.
func (s *ScheduleService) CreateException(ctx context.Context, providerID string, req CreateExceptionRequest) (*models.ScheduleException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	if _, err := parseDateOnly(req.Date); err != nil {
		return nil, err
	}

	exc := models.ScheduleException{
		ProviderID: providerID,
		Date:       req.Date,
		Kind:       req.Kind,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		exc.Reason = &reason
	}

	if req.Kind == models.ExceptionSpecialHours {
		if err := ValidateInterval(req.StartTime, req.EndTime); err != nil {
			return nil, err
		}
		start, end := req.StartTime, req.EndTime
		exc.StartTime = &start
		exc.EndTime = &end
	}

	if err := s.exceptions.Create(ctx, &exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule exception")
	}
	s.invalidateAvailability(ctx, providerID)
	return &exc, nil
}

// DeleteException removes an exception owned by the provider.
func (s *ScheduleService) DeleteException(ctx context.Context, providerID, exceptionID string) error {
	existing, err := s.exceptions.FindByID(ctx, exceptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule exception")
	}
	if existing.ProviderID != providerID {
		return appErrors.Clone(appErrors.ErrForbidden, "schedule exception belongs to another provider")
	}
	if err := s.exceptions.Delete(ctx, exceptionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule exception")
	}
	s.invalidateAvailability(ctx, providerID)
	return nil
}

func (s *ScheduleService) invalidateAvailability(ctx context.Context, providerID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%s:*", providerID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("provider_id", providerID), zap.Error(err))
	}
}

func parseDateOnly(date string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	return parsed, nil
}
