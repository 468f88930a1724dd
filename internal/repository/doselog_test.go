package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lunara-health/backend/internal/repository"
	"github.com/lunara-health/backend/pkg/model"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDoseLogCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := repository.NewDoseLogRepository(mock, zap.NewNop())

	log := &model.DoseLog{
		ID:            "dose-1",
		MedicationID:  "med-1",
		ScheduledTime: time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC),
		Status:        model.DoseStatusScheduled,
	}

	mock.ExpectExec("INSERT INTO dose_logs").
		WithArgs(log.ID, log.MedicationID, log.ScheduledTime, log.TakenTime, log.Taken, log.Status).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), log)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoseLogMarkTaken(t *testing.T) {
	ctx := context.Background()
	takenAt := time.Date(2026, 3, 20, 8, 12, 0, 0, time.UTC)

	t.Run("scheduled dose is marked", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		repo := repository.NewDoseLogRepository(mock, zap.NewNop())

		mock.ExpectExec("UPDATE dose_logs").
			WithArgs(takenAt, model.DoseStatusTaken, "dose-1", model.DoseStatusScheduled).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.MarkTaken(ctx, "dose-1", takenAt)

		assert.NoError(t, err)
	})

	t.Run("already resolved dose is untouched", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		repo := repository.NewDoseLogRepository(mock, zap.NewNop())

		mock.ExpectExec("UPDATE dose_logs").
			WithArgs(takenAt, model.DoseStatusTaken, "dose-1", model.DoseStatusScheduled).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.MarkTaken(ctx, "dose-1", takenAt)

		assert.Error(t, err)
	})
}

func TestDoseLogMarkOverdueMissed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := repository.NewDoseLogRepository(mock, zap.NewNop())

	cutoff := time.Date(2026, 3, 20, 4, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE dose_logs").
		WithArgs(model.DoseStatusMissed, model.DoseStatusScheduled, cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 5))

	marked, err := repo.MarkOverdueMissed(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(5), marked)
}

func TestDoseLogExistsForDay(t *testing.T) {
	ctx := context.Background()
	dayStart := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	t.Run("existing schedule found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		repo := repository.NewDoseLogRepository(mock, zap.NewNop())

		mock.ExpectQuery("SELECT id FROM dose_logs").
			WithArgs("med-1", dayStart, dayEnd).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("dose-1"))

		exists, err := repo.ExistsForDay(ctx, "med-1", dayStart, dayEnd)

		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("no rows means not instantiated", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		repo := repository.NewDoseLogRepository(mock, zap.NewNop())

		mock.ExpectQuery("SELECT id FROM dose_logs").
			WithArgs("med-1", dayStart, dayEnd).
			WillReturnError(pgx.ErrNoRows)

		exists, err := repo.ExistsForDay(ctx, "med-1", dayStart, dayEnd)

		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestDoseLogFindByMedicationSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := repository.NewDoseLogRepository(mock, zap.NewNop())

	since := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	scheduled := time.Date(2026, 3, 19, 8, 0, 0, 0, time.UTC)
	takenAt := scheduled.Add(10 * time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "medication_id", "scheduled_time", "taken_time", "taken", "status", "created_at",
	}).
		AddRow("dose-1", "med-1", scheduled, &takenAt, true, model.DoseStatusTaken, scheduled).
		AddRow("dose-2", "med-1", scheduled.AddDate(0, 0, 1), (*time.Time)(nil), false, model.DoseStatusScheduled, scheduled)

	mock.ExpectQuery(regexp.QuoteMeta("FROM dose_logs")).
		WithArgs("med-1", since).
		WillReturnRows(rows)

	logs, err := repo.FindByMedicationSince(context.Background(), "med-1", since)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].Taken)
	assert.Nil(t, logs[1].TakenTime)
}

func TestDoseLogFindByMedicationSince_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := repository.NewDoseLogRepository(mock, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("FROM dose_logs")).
		WithArgs("med-1", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	logs, err := repo.FindByMedicationSince(context.Background(), "med-1", time.Now())

	assert.Nil(t, logs)
	assert.Error(t, err)
}
