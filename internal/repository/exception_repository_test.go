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

var exceptionRowColumns = []string{"id", "provider_id", "exception_date", "kind", "start_time", "end_time", "reason", "created_at"}

func TestExceptionRepositoryListForDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	// Newest-created first so the resolver applies a deterministic winner.
	rows := sqlmock.NewRows(exceptionRowColumns).
		AddRow("x2", "prov-1", "2025-12-24", "SPECIAL_HOURS", "10:00", "14:00", nil, time.Now()).
		AddRow("x1", "prov-1", "2025-12-24", "CLOSED", nil, nil, "holiday", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, provider_id, exception_date, kind, start_time, end_time, reason, created_at FROM schedule_exceptions WHERE provider_id = $1 AND exception_date = $2 ORDER BY created_at DESC, id DESC")).
		WithArgs("prov-1", "2025-12-24").
		WillReturnRows(rows)

	exceptions, err := repo.ListForDate(context.Background(), "prov-1", "2025-12-24")
	require.NoError(t, err)
	require.Len(t, exceptions, 2)
	assert.Equal(t, "x2", exceptions[0].ID)
	assert.Equal(t, models.ExceptionSpecialHours, exceptions[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExceptionRepository(db)

	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WithArgs(sqlmock.AnyArg(), "prov-1", "2025-12-25", models.ExceptionClosed, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exc := &models.ScheduleException{ProviderID: "prov-1", Date: "2025-12-25", Kind: models.ExceptionClosed}
	require.NoError(t, repo.Create(context.Background(), exc))
	assert.NotEmpty(t, exc.ID)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_exceptions WHERE id = $1")).
		WithArgs(exc.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), exc.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
