package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type availabilityScheduleRepository interface {
	ListActiveForDay(ctx context.Context, providerID string, dayOfWeek int) ([]models.WeeklyScheduleEntry, error)
}

type availabilityExceptionRepository interface {
	ListForDate(ctx context.Context, providerID, date string) ([]models.ScheduleException, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityService computes the effective open intervals for a provider on
// a concrete calendar date: the weekly baseline for that weekday, overridden
// entirely by any date exception. It is a pure read path and never mutates
// schedule data.
type AvailabilityService struct {
	schedules  availabilityScheduleRepository
	exceptions availabilityExceptionRepository
	cache      availabilityCache
	cacheTTL   time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService. Cache and metrics
// may be nil, in which case resolution is uncached and unobserved.
func NewAvailabilityService(schedules availabilityScheduleRepository, exceptions availabilityExceptionRepository, cache availabilityCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		schedules:  schedules,
		exceptions: exceptions,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		logger:     logger,
	}
}

func availabilityCacheKey(providerID, date string) string {
	return fmt.Sprintf("availability:%s:%s", providerID, date)
}

// Resolve returns the effective open intervals for providerID on date
// ("YYYY-MM-DD"). A date with no weekly entry and no exception resolves to an
// empty set: the provider is simply closed that day.
func (s *AvailabilityService) Resolve(ctx context.Context, providerID, date string) (*models.DayAvailability, error) {
	if providerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a provider id is required")
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	if s.cache != nil {
		var cached models.DayAvailability
		if err := s.cache.Get(ctx, availabilityCacheKey(providerID, date), &cached); err == nil {
			if s.metrics != nil {
				s.metrics.ObserveAvailabilityCache(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.ObserveAvailabilityCache(false)
		}
	}

	result, err := s.resolve(ctx, providerID, date, int(parsed.Weekday()))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, availabilityCacheKey(providerID, date), result, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache resolved availability", zap.String("provider_id", providerID), zap.Error(err))
		}
	}

	return result, nil
}

func (s *AvailabilityService) resolve(ctx context.Context, providerID, date string, dayOfWeek int) (*models.DayAvailability, error) {
	exceptions, err := s.exceptions.ListForDate(ctx, providerID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule exceptions")
	}

	result := &models.DayAvailability{ProviderID: providerID, Date: date, Open: []models.TimeRange{}}

	// Exceptions always override the recurring schedule. More than one for the
	// same date should not occur; the repository orders newest-created first
	// and only the winner is applied.
	if len(exceptions) > 0 {
		exc := exceptions[0]
		if len(exceptions) > 1 {
			s.logger.Warn("multiple exceptions for one date, applying most recent",
				zap.String("provider_id", providerID), zap.String("date", date), zap.Int("count", len(exceptions)))
		}
		switch exc.Kind {
		case models.ExceptionClosed:
			return result, nil
		case models.ExceptionSpecialHours:
			if exc.StartTime == nil || exc.EndTime == nil {
				// Rejected at write time; treat a stored violation as closed.
				s.logger.Error("special hours exception missing interval", zap.String("exception_id", exc.ID))
				return result, nil
			}
			result.Open = append(result.Open, models.TimeRange{Start: *exc.StartTime, End: *exc.EndTime})
			return result, nil
		}
	}

	entries, err := s.schedules.ListActiveForDay(ctx, providerID, dayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
	for _, entry := range entries {
		result.Open = append(result.Open, models.TimeRange{Start: entry.StartTime, End: entry.EndTime})
	}
	return result, nil
}
