package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

func TestRequestRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepo{db: mock}
	req := models.Request{
		ID: "req-1", DrugName: "aspirin", DeliveryMethod: models.DeliveryTransdermal,
		Priority: models.PriorityNormal, CorrelationID: "corr-1", CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO requests`).
		WithArgs(req.ID, req.DrugName, req.DeliveryMethod, req.Priority, models.StatusSubmitted, req.CallbackURL, req.CorrelationID, req.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), req))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepo{db: mock}
	now := time.Now()
	cols := []string{"id", "drug_name", "delivery_method", "priority", "callback_url", "correlation_id", "created_at", "updated_at", "completed_at"}

	mock.ExpectQuery(`SELECT id, drug_name, delivery_method, priority, callback_url, correlation_id, created_at, updated_at, completed_at\s+FROM requests WHERE id = \$1`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("req-1", "aspirin", models.DeliveryTransdermal, models.PriorityNormal, "", "corr-1", now, now, (*time.Time)(nil)))

	got, err := repo.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, "aspirin", got.DrugName)
	assert.Nil(t, got.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepo{db: mock}
	mock.ExpectQuery(`SELECT id, drug_name`).
		WithArgs("missing").
		WillReturnError(fmt.Errorf("no rows in result set"))

	_, err = repo.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRequestRepo_UpdateStatus_Terminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepo{db: mock}
	mock.ExpectExec(`UPDATE requests SET status = \$2`).
		WithArgs("req-1", models.StatusCompleted, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "req-1", models.StatusCompleted, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_PurgeRequestsOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepo{db: mock}
	cutoff := time.Now()
	mock.ExpectExec(`DELETE FROM requests WHERE status = 'completed'`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.PurgeRequestsOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
