package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// TrackingRepo persists the 1:1 ProcessTracking row for a request.
type TrackingRepo struct {
	db DB
}

// Create inserts the initial tracking row for a newly submitted request.
func (r *TrackingRepo) Create(ctx context.Context, t models.ProcessTracking) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO process_tracking (request_id, status, progress_percent, categories_total, categories_completed, stage_timestamps, error_details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.RequestID, t.Status, t.ProgressPercent, t.CategoriesTotal, t.CategoriesCompleted, t.StageTimestamps, t.ErrorDetails)
	if err != nil {
		return eris.Wrap(err, "store: create process tracking")
	}
	return nil
}

// Get fetches the tracking row for one request.
func (r *TrackingRepo) Get(ctx context.Context, requestID string) (models.ProcessTracking, error) {
	var t models.ProcessTracking
	t.RequestID = requestID
	err := r.db.QueryRow(ctx,
		`SELECT status, progress_percent, categories_total, categories_completed, estimated_completion_at, stage_timestamps, error_details
		 FROM process_tracking WHERE request_id = $1`, requestID,
	).Scan(&t.Status, &t.ProgressPercent, &t.CategoriesTotal, &t.CategoriesCompleted, &t.EstimatedCompletionAt, &t.StageTimestamps, &t.ErrorDetails)
	if err != nil {
		return models.ProcessTracking{}, eris.Wrapf(err, "store: get process tracking %s", requestID)
	}
	return t, nil
}

// Update persists the full tracking row, overwriting progress/status fields.
func (r *TrackingRepo) Update(ctx context.Context, t models.ProcessTracking) error {
	_, err := r.db.Exec(ctx,
		`UPDATE process_tracking SET status = $2, progress_percent = $3, categories_total = $4,
		 categories_completed = $5, estimated_completion_at = $6, stage_timestamps = $7, error_details = $8
		 WHERE request_id = $1`,
		t.RequestID, t.Status, t.ProgressPercent, t.CategoriesTotal, t.CategoriesCompleted,
		t.EstimatedCompletionAt, t.StageTimestamps, t.ErrorDetails)
	if err != nil {
		return eris.Wrapf(err, "store: update process tracking %s", t.RequestID)
	}
	return nil
}

// BulkGet fetches tracking rows for multiple requests in one query, used by
// the bulk status endpoint.
func (r *TrackingRepo) BulkGet(ctx context.Context, requestIDs []string) (map[string]models.ProcessTracking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT request_id, status, progress_percent, categories_total, categories_completed, estimated_completion_at, stage_timestamps, error_details
		 FROM process_tracking WHERE request_id = ANY($1)`, requestIDs)
	if err != nil {
		return nil, eris.Wrap(err, "store: bulk get process tracking")
	}
	defer rows.Close()

	out := make(map[string]models.ProcessTracking, len(requestIDs))
	for rows.Next() {
		var t models.ProcessTracking
		if err := rows.Scan(&t.RequestID, &t.Status, &t.ProgressPercent, &t.CategoriesTotal, &t.CategoriesCompleted,
			&t.EstimatedCompletionAt, &t.StageTimestamps, &t.ErrorDetails); err != nil {
			return nil, eris.Wrap(err, "store: scan process tracking row")
		}
		out[t.RequestID] = t
	}
	return out, rows.Err()
}

// PurgeProcessTrackingOlderThan implements retention.Purger. Tracking rows
// are keyed to requests, so this deletes every tracking row whose request no
// longer exists. cutoff is not used: a row's age plays no part.
func (r *TrackingRepo) PurgeProcessTrackingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM process_tracking WHERE request_id NOT IN (SELECT id FROM requests)`)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge process tracking")
	}
	return tag.RowsAffected(), nil
}
