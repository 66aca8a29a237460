package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// AuditRepo persists AuditEvent rows. It implements audit.Store and the
// audit-related slice of retention.Purger; notably it has no update or
// delete path for a single event, only Append and the scheduled bulk purge.
type AuditRepo struct {
	db DB
}

// Append implements audit.Store.
func (r *AuditRepo) Append(ctx context.Context, event models.AuditEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_events
		 (id, event_type, entity_type, entity_id, request_id, old_values, new_values, actor, correlation_id, occurred_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.EventType, event.EntityType, event.EntityID, nullIfEmpty(event.RequestID),
		event.OldValues, event.NewValues, event.Actor, event.CorrelationID, event.Timestamp,
		event.IPAddress, event.UserAgent)
	if err != nil {
		return eris.Wrap(err, "store: append audit event")
	}
	return nil
}

// ByRequestID implements audit.Store.
func (r *AuditRepo) ByRequestID(ctx context.Context, requestID string) ([]models.AuditEvent, error) {
	return r.query(ctx, `SELECT id, event_type, entity_type, entity_id, request_id, old_values, new_values,
		actor, correlation_id, occurred_at, ip_address, user_agent FROM audit_events
		WHERE request_id = $1 ORDER BY occurred_at ASC`, requestID)
}

// ByCorrelationID implements audit.Store.
func (r *AuditRepo) ByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditEvent, error) {
	return r.query(ctx, `SELECT id, event_type, entity_type, entity_id, request_id, old_values, new_values,
		actor, correlation_id, occurred_at, ip_address, user_agent FROM audit_events
		WHERE correlation_id = $1 ORDER BY occurred_at ASC`, correlationID)
}

func (r *AuditRepo) query(ctx context.Context, sql string, arg string) ([]models.AuditEvent, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, eris.Wrap(err, "store: query audit events")
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var requestID *string
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &requestID, &e.OldValues, &e.NewValues,
			&e.Actor, &e.CorrelationID, &e.Timestamp, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, eris.Wrap(err, "store: scan audit event row")
		}
		if requestID != nil {
			e.RequestID = *requestID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count implements audit.Store, used by retention.Manager to sanity-check
// that a sweep never removes more than the policy accounts for.
func (r *AuditRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "store: count audit events")
	}
	return n, nil
}

// CountAuditEvents implements retention.Purger (same query as Count; kept as
// a separate method name because retention.Purger and audit.Store are
// distinct interfaces this repo happens to satisfy both of).
func (r *AuditRepo) CountAuditEvents(ctx context.Context) (int64, error) {
	return r.Count(ctx)
}

// PurgeAuditEventsOlderThan implements retention.Purger.
func (r *AuditRepo) PurgeAuditEventsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "store: purge audit events")
	}
	return tag.RowsAffected(), nil
}
