package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

func TestTrackingRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TrackingRepo{db: mock}
	tr := models.ProcessTracking{RequestID: "req-1", Status: models.StatusSubmitted, CategoriesTotal: 6}

	mock.ExpectExec(`INSERT INTO process_tracking`).
		WithArgs(tr.RequestID, tr.Status, tr.ProgressPercent, tr.CategoriesTotal, tr.CategoriesCompleted, tr.StageTimestamps, tr.ErrorDetails).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TrackingRepo{db: mock}
	cols := []string{"status", "progress_percent", "categories_total", "categories_completed", "estimated_completion_at", "stage_timestamps", "error_details"}

	mock.ExpectQuery(`SELECT status, progress_percent, categories_total, categories_completed, estimated_completion_at, stage_timestamps, error_details`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(models.StatusCollecting, 40, 6, 2, (*time.Time)(nil), map[models.Stage]models.StageTimestamp{}, ""))

	got, err := repo.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, models.StatusCollecting, got.Status)
	assert.Equal(t, 2, got.CategoriesCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TrackingRepo{db: mock}
	tr := models.ProcessTracking{RequestID: "req-1", Status: models.StatusMerging, ProgressPercent: 60}

	mock.ExpectExec(`UPDATE process_tracking SET status = \$2`).
		WithArgs(tr.RequestID, tr.Status, tr.ProgressPercent, tr.CategoriesTotal, tr.CategoriesCompleted, tr.EstimatedCompletionAt, tr.StageTimestamps, tr.ErrorDetails).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRepo_BulkGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TrackingRepo{db: mock}
	cols := []string{"request_id", "status", "progress_percent", "categories_total", "categories_completed", "estimated_completion_at", "stage_timestamps", "error_details"}

	mock.ExpectQuery(`SELECT request_id, status, progress_percent, categories_total, categories_completed, estimated_completion_at, stage_timestamps, error_details`).
		WithArgs([]string{"req-1", "req-2"}).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("req-1", models.StatusCompleted, 100, 6, 6, (*time.Time)(nil), map[models.Stage]models.StageTimestamp{}, "").
			AddRow("req-2", models.StatusFailed, 20, 6, 1, (*time.Time)(nil), map[models.Stage]models.StageTimestamp{}, "boom"))

	got, err := repo.BulkGet(context.Background(), []string{"req-1", "req-2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, models.StatusCompleted, got["req-1"].Status)
	assert.Equal(t, "boom", got["req-2"].ErrorDetails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRepo_PurgeProcessTrackingOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TrackingRepo{db: mock}
	mock.ExpectExec(`DELETE FROM process_tracking WHERE request_id NOT IN`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.PurgeProcessTrackingOlderThan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
