package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevaproject/booking-api/internal/models"
)

const scheduleEntryColumns = "id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at"

// ScheduleRepository provides persistence for weekly schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByProvider returns all weekly entries owned by a provider ordered by day and start time.
func (r *ScheduleRepository) ListByProvider(ctx context.Context, providerID string) ([]models.WeeklyScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_entries WHERE provider_id = $1 ORDER BY day_of_week, start_time", scheduleEntryColumns)
	var entries []models.WeeklyScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, providerID); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// ListActiveForDay returns the active entries forming the baseline availability for one weekday.
func (r *ScheduleRepository) ListActiveForDay(ctx context.Context, providerID string, dayOfWeek int) ([]models.WeeklyScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_entries WHERE provider_id = $1 AND day_of_week = $2 AND active ORDER BY start_time", scheduleEntryColumns)
	var entries []models.WeeklyScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, providerID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list active schedule entries: %w", err)
	}
	return entries, nil
}

// FindByID loads a weekly entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeeklyScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_entries WHERE id = $1", scheduleEntryColumns)
	var entry models.WeeklyScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new weekly entry, assigning id and timestamps.
func (r *ScheduleRepository) Create(ctx context.Context, entry *models.WeeklyScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	const query = `INSERT INTO weekly_schedule_entries (id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ProviderID, entry.DayOfWeek, entry.StartTime, entry.EndTime, entry.Active, entry.CreatedAt, entry.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// Update rewrites an existing weekly entry.
func (r *ScheduleRepository) Update(ctx context.Context, entry *models.WeeklyScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE weekly_schedule_entries SET day_of_week = $2, start_time = $3, end_time = $4, active = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.DayOfWeek, entry.StartTime, entry.EndTime, entry.Active, entry.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	return nil
}

// Delete removes a weekly entry.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM weekly_schedule_entries WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}
