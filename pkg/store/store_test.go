package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// newTestStore builds a Store whose repos all share one pgxmock pool,
// exercising the same wiring store.New uses against a live pgxpool.Pool.
func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Store{
		RequestRepo:  &RequestRepo{db: mock},
		CategoryRepo: &CategoryRepo{db: mock},
		Phase2Repo:   &Phase2Repo{db: mock},
		AuditRepo:    &AuditRepo{db: mock},
		TrackingRepo: &TrackingRepo{db: mock},
	}, mock
}

func TestStore_AmbiguousSelectorForwarders(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO requests`).WithArgs(pgxmock.AnyArg(), "", models.DeliveryMethod(""), models.Priority(""), models.StatusSubmitted, "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.Create(context.Background(), models.Request{}))

	mock.ExpectExec(`INSERT INTO process_tracking`).WithArgs("req-1", models.RequestStatus(""), 0, 0, 0, map[models.Stage]models.StageTimestamp(nil), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.TrackingCreate(context.Background(), models.ProcessTracking{RequestID: "req-1"}))

	assert.NoError(t, mock.ExpectationsWereMet())
}
