package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevaproject/booking-api/internal/models"
)

// ErrStaleState is returned when a conditional update matched no row because
// the booking's state changed underneath the caller.
var ErrStaleState = errors.New("booking state changed concurrently")

const bookingColumns = `id, service_id, service_name, client_id, client_name, provider_id, provider_name, contact_name,
	booking_date, start_time, end_time, state, cancel_reason, completion_note,
	client_rating_score, client_rating_comment, client_rating_nps, provider_rating_score, provider_rating_comment,
	created_at, updated_at`

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListForClient returns a client's bookings matching the filter. The
// counterpart dimension matches the provider side.
func (r *BookingRepository) ListForClient(ctx context.Context, clientID string, filter models.BookingFilter) ([]models.Booking, int, error) {
	return r.list(ctx, "client_id", clientID, "provider_name", filter)
}

// ListForProvider returns a provider's bookings matching the filter. The
// counterpart dimension matches the client side.
func (r *BookingRepository) ListForProvider(ctx context.Context, providerID string, filter models.BookingFilter) ([]models.Booking, int, error) {
	return r.list(ctx, "provider_id", providerID, "client_name", filter)
}

func (r *BookingRepository) list(ctx context.Context, ownerColumn, ownerID, counterpartColumn string, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := fmt.Sprintf("FROM bookings WHERE %s = $1", ownerColumn)
	args := []interface{}{ownerID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (service_name ILIKE $%d OR client_name ILIKE $%d OR provider_name ILIKE $%d OR contact_name ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ServiceName != "" {
		base += fmt.Sprintf(" AND service_name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.ServiceName+"%")
	}
	if filter.Counterpart != "" {
		base += fmt.Sprintf(" AND %s ILIKE $%d", counterpartColumn, len(args)+1)
		args = append(args, "%"+filter.Counterpart+"%")
	}
	if filter.ContactName != "" {
		base += fmt.Sprintf(" AND contact_name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.ContactName+"%")
	}
	if filter.From != "" {
		base += fmt.Sprintf(" AND booking_date >= $%d", len(args)+1)
		args = append(args, filter.From)
	}
	if filter.To != "" {
		base += fmt.Sprintf(" AND booking_date <= $%d", len(args)+1)
		args = append(args, filter.To)
	}
	if filter.State != "" {
		base += fmt.Sprintf(" AND state = $%d", len(args)+1)
		args = append(args, filter.State)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"booking_date": true,
		"created_at":   true,
		"updated_at":   true,
		"state":        true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "booking_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// Get loads a booking by id.
func (r *BookingRepository) Get(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create inserts a new booking in PENDING state.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.State = models.BookingPending
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, service_id, service_name, client_id, client_name, provider_id, provider_name, contact_name,
		booking_date, start_time, end_time, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.ServiceID, booking.ServiceName, booking.ClientID, booking.ClientName,
		booking.ProviderID, booking.ProviderName, booking.ContactName,
		booking.Date, booking.StartTime, booking.EndTime, booking.State, booking.CreatedAt, booking.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Transition moves a booking from one state to another with a compare-and-swap
// precondition on the current state. When two principals race on the same
// booking exactly one UPDATE matches; the loser gets ErrStaleState.
func (r *BookingRepository) Transition(ctx context.Context, id string, from, to models.BookingState, cancelReason, completionNote *string) (*models.Booking, error) {
	const query = `UPDATE bookings
		SET state = $3, cancel_reason = COALESCE($4, cancel_reason), completion_note = COALESCE($5, completion_note), updated_at = $6
		WHERE id = $1 AND state = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, cancelReason, completionNote, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("transition booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition booking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrStaleState
	}
	return r.Get(ctx, id)
}

// SetRating fills one perspective's rating slot. The UPDATE is conditioned on
// the booking still being COMPLETED and the slot still empty, so a duplicate
// submission loses deterministically.
func (r *BookingRepository) SetRating(ctx context.Context, id string, perspective models.Perspective, rating models.Rating) (*models.Booking, error) {
	var query string
	var args []interface{}
	switch perspective {
	case models.PerspectiveClient:
		query = `UPDATE bookings SET client_rating_score = $2, client_rating_comment = $3, client_rating_nps = $4, updated_at = $5
			WHERE id = $1 AND state = 'COMPLETED' AND client_rating_score IS NULL`
		args = []interface{}{id, rating.Score, rating.Comment, rating.NPSScore, time.Now().UTC()}
	case models.PerspectiveProvider:
		query = `UPDATE bookings SET provider_rating_score = $2, provider_rating_comment = $3, updated_at = $4
			WHERE id = $1 AND state = 'COMPLETED' AND provider_rating_score IS NULL`
		args = []interface{}{id, rating.Score, rating.Comment, time.Now().UTC()}
	default:
		return nil, fmt.Errorf("unknown rating perspective %q", perspective)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("set booking rating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("set booking rating rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrStaleState
	}
	return r.Get(ctx, id)
}
