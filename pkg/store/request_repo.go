package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// RequestRepo persists models.Request rows.
type RequestRepo struct {
	db DB
}

// Create inserts a new request.
func (r *RequestRepo) Create(ctx context.Context, req models.Request) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO requests (id, drug_name, delivery_method, priority, status, callback_url, correlation_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		req.ID, req.DrugName, req.DeliveryMethod, req.Priority, models.StatusSubmitted, req.CallbackURL, req.CorrelationID, req.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "store: create request")
	}
	return nil
}

// Get fetches one request by id.
func (r *RequestRepo) Get(ctx context.Context, id string) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRow(ctx,
		`SELECT id, drug_name, delivery_method, priority, callback_url, correlation_id, created_at, updated_at, completed_at
		 FROM requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.DrugName, &req.DeliveryMethod, &req.Priority, &req.CallbackURL, &req.CorrelationID, &req.CreatedAt, &req.UpdatedAt, &req.CompletedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return models.Request{}, eris.Wrapf(err, "store: request %s not found", id)
	}
	if err != nil {
		return models.Request{}, eris.Wrapf(err, "store: get request %s", id)
	}
	return req, nil
}

// UpdateStatus transitions a request's status, setting completed_at when
// moving to a terminal state.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, errMsg string) error {
	var completedAt *time.Time
	if status == models.StatusCompleted || status == models.StatusFailed || status == models.StatusCancelled {
		now := time.Now()
		completedAt = &now
	}
	_, err := r.db.Exec(ctx,
		`UPDATE requests SET status = $2, error_message = $3, updated_at = now(), completed_at = COALESCE($4, completed_at) WHERE id = $1`,
		id, status, errMsg, completedAt)
	if err != nil {
		return eris.Wrapf(err, "store: update request %s status", id)
	}
	return nil
}

// List returns requests matching an optional status filter, newest first.
func (r *RequestRepo) List(ctx context.Context, statusFilter string, limit, offset int) ([]models.Request, error) {
	var rows pgx.Rows
	var err error
	if statusFilter != "" {
		rows, err = r.db.Query(ctx,
			`SELECT id, drug_name, delivery_method, priority, callback_url, correlation_id, created_at, updated_at, completed_at
			 FROM requests WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, statusFilter, limit, offset)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, drug_name, delivery_method, priority, callback_url, correlation_id, created_at, updated_at, completed_at
			 FROM requests ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: list requests")
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var req models.Request
		if err := rows.Scan(&req.ID, &req.DrugName, &req.DeliveryMethod, &req.Priority, &req.CallbackURL, &req.CorrelationID, &req.CreatedAt, &req.UpdatedAt, &req.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan request row")
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// PurgeRequestsOlderThan deletes completed requests older than cutoff.
func (r *RequestRepo) PurgeRequestsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM requests WHERE status = 'completed' AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge requests")
	}
	return tag.RowsAffected(), nil
}

// PurgeFailedRequestsOlderThan deletes failed requests older than cutoff
// that have already been retried at least minRetries times.
func (r *RequestRepo) PurgeFailedRequestsOlderThan(ctx context.Context, cutoff time.Time, minRetries int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM requests WHERE status = 'failed' AND completed_at < $1
		 AND id IN (SELECT request_id FROM category_results GROUP BY request_id HAVING MAX(retry_count) >= $2)`,
		cutoff, minRetries)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge failed requests")
	}
	return tag.RowsAffected(), nil
}
