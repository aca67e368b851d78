package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	"github.com/sevaproject/booking-api/internal/repository"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
)

type ratingBookingRepository interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
	SetRating(ctx context.Context, id string, perspective models.Perspective, rating models.Rating) (*models.Booking, error)
}

// RatingService gates rating submissions on the booking lifecycle: only a
// COMPLETED booking may be rated, once per perspective, and submitting never
// changes the booking state.
type RatingService struct {
	repo    ratingBookingRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRatingService instantiates RatingService.
func NewRatingService(repo ratingBookingRepository, metrics *MetricsService, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{repo: repo, metrics: metrics, logger: logger}
}

// CanRate reports whether the given perspective may currently rate the booking.
func (s *RatingService) CanRate(booking *models.Booking, perspective models.Perspective) bool {
	if booking == nil {
		return false
	}
	return booking.State == models.BookingCompleted && !booking.Rated(perspective)
}

// Submit validates and records one perspective's rating for a booking.
func (s *RatingService) Submit(ctx context.Context, user *models.User, bookingID string, rating models.Rating) (*models.Booking, error) {
	perspective := user.Role.Perspective()
	if perspective == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients and providers may rate bookings")
	}

	if err := validateRating(rating, perspective); err != nil {
		s.countRating(perspective, "rejected")
		return nil, err
	}

	booking, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !participates(user, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to other principals")
	}

	if !s.CanRate(booking, perspective) {
		s.countRating(perspective, "not_allowed")
		if booking.Rated(perspective) {
			return nil, appErrors.Clone(appErrors.ErrRatingNotAllowed, "this booking has already been rated from your perspective")
		}
		return nil, appErrors.Clone(appErrors.ErrRatingNotAllowed, "only completed bookings may be rated")
	}

	updated, err := s.repo.SetRating(ctx, bookingID, perspective, rating)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			s.countRating(perspective, "lost_race")
			return nil, appErrors.Clone(appErrors.ErrRatingNotAllowed, "the booking changed concurrently, please refresh")
		}
		s.countRating(perspective, "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record rating")
	}

	s.countRating(perspective, "submitted")
	s.logger.Info("rating submitted",
		zap.String("booking_id", bookingID),
		zap.String("perspective", string(perspective)),
		zap.Int("score", rating.Score))
	return updated, nil
}

func (s *RatingService) countRating(perspective models.Perspective, outcome string) {
	if s.metrics != nil {
		s.metrics.IncRatingSubmission(string(perspective), outcome)
	}
}

func validateRating(rating models.Rating, perspective models.Perspective) error {
	if rating.Score < 1 || rating.Score > 5 {
		return appErrors.Clone(appErrors.ErrValidation, "score must be between 1 and 5")
	}
	if strings.TrimSpace(rating.Comment) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a comment is required")
	}
	if perspective == models.PerspectiveClient {
		if rating.NPSScore == nil {
			return appErrors.Clone(appErrors.ErrValidation, "an nps score is required")
		}
	}
	if rating.NPSScore != nil && (*rating.NPSScore < 1 || *rating.NPSScore > 10) {
		return appErrors.Clone(appErrors.ErrValidation, "nps score must be between 1 and 10")
	}
	return nil
}
