package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevaproject/booking-api/internal/models"
)

const exceptionColumns = "id, provider_id, exception_date, kind, start_time, end_time, reason, created_at"

// ExceptionRepository provides persistence for date-specific schedule exceptions.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository creates a new exception repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// ListByProvider returns all exceptions owned by a provider, newest first.
func (r *ExceptionRepository) ListByProvider(ctx context.Context, providerID string) ([]models.ScheduleException, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_exceptions WHERE provider_id = $1 ORDER BY exception_date DESC, created_at DESC", exceptionColumns)
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, providerID); err != nil {
		return nil, fmt.Errorf("list schedule exceptions: %w", err)
	}
	return exceptions, nil
}

// ListForDate returns the exceptions applying to one provider and date.
// Ordered newest-created first so callers can apply the deterministic tie-break.
func (r *ExceptionRepository) ListForDate(ctx context.Context, providerID, date string) ([]models.ScheduleException, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_exceptions WHERE provider_id = $1 AND exception_date = $2 ORDER BY created_at DESC, id DESC", exceptionColumns)
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, providerID, date); err != nil {
		return nil, fmt.Errorf("list exceptions for date: %w", err)
	}
	return exceptions, nil
}

// FindByID loads an exception by id.
func (r *ExceptionRepository) FindByID(ctx context.Context, id string) (*models.ScheduleException, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_exceptions WHERE id = $1", exceptionColumns)
	var exc models.ScheduleException
	if err := r.db.GetContext(ctx, &exc, query, id); err != nil {
		return nil, err
	}
	return &exc, nil
}

// Create inserts a new exception, assigning id and creation timestamp.
func (r *ExceptionRepository) Create(ctx context.Context, exc *models.ScheduleException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	exc.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO schedule_exceptions (id, provider_id, exception_date, kind, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		exc.ID, exc.ProviderID, exc.Date, exc.Kind, exc.StartTime, exc.EndTime, exc.Reason, exc.CreatedAt,
	); err != nil {
		return fmt.Errorf("create schedule exception: %w", err)
	}
	return nil
}

// Delete removes an exception.
func (r *ExceptionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_exceptions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete schedule exception: %w", err)
	}
	return nil
}
