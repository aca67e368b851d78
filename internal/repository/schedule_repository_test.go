package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevaproject/booking-api/internal/models"
)

var entryRowColumns = []string{"id", "provider_id", "day_of_week", "start_time", "end_time", "active", "created_at", "updated_at"}

func TestScheduleRepositoryListActiveForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(entryRowColumns).
		AddRow("e1", "prov-1", 1, "09:00", "12:00", true, now, now).
		AddRow("e2", "prov-1", 1, "13:00", "17:00", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, provider_id, day_of_week, start_time, end_time, active, created_at, updated_at FROM weekly_schedule_entries WHERE provider_id = $1 AND day_of_week = $2 AND active ORDER BY start_time")).
		WithArgs("prov-1", 1).
		WillReturnRows(rows)

	entries, err := repo.ListActiveForDay(context.Background(), "prov-1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "09:00", entries[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO weekly_schedule_entries").
		WithArgs(sqlmock.AnyArg(), "prov-1", 2, "10:00", "16:00", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.WeeklyScheduleEntry{ProviderID: "prov-1", DayOfWeek: 2, StartTime: "10:00", EndTime: "16:00", Active: true}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(`UPDATE weekly_schedule_entries SET day_of_week = \$2, start_time = \$3, end_time = \$4, active = \$5, updated_at = \$6 WHERE id = \$1`).
		WithArgs("e1", 3, "08:00", "12:00", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.WeeklyScheduleEntry{ID: "e1", DayOfWeek: 3, StartTime: "08:00", EndTime: "12:00", Active: false}
	require.NoError(t, repo.Update(context.Background(), entry))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_schedule_entries WHERE id = $1")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
