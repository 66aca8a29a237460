// Package audit implements the immutable, append-only audit log (spec
// §4.11): every mutating operation and pipeline lifecycle event is recorded
// with before/after values, actor, and correlation id for traceability.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Store persists audit events. It must never support update or delete --
// the only repository methods exposed here are Append and the read paths,
// enforcing append-only at the API surface rather than relying on callers'
// discipline.
type Store interface {
	Append(ctx context.Context, event models.AuditEvent) error
	ByRequestID(ctx context.Context, requestID string) ([]models.AuditEvent, error)
	ByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditEvent, error)
	Count(ctx context.Context) (int64, error)
}

// Logger records audit events.
type Logger struct {
	store Store
	now   func() time.Time
}

// New builds a Logger.
func New(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Record appends one audit event. A failure to persist is tagged
// apperr.AuditWriteFailure so callers can decide whether it should block
// the triggering operation (spec §4.11 treats audit failures as serious but
// not always fatal -- process lifecycle events fail the request; simple
// read-path access logging does not).
func (l *Logger) Record(ctx context.Context, eventType models.AuditEventType, entityType, entityID, requestID, actor, correlationID string, oldValues, newValues map[string]any) error {
	event := models.AuditEvent{
		ID: uuid.NewString(), EventType: eventType, EntityType: entityType, EntityID: entityID,
		RequestID: requestID, OldValues: oldValues, NewValues: newValues,
		Actor: actor, CorrelationID: correlationID, Timestamp: l.now(),
	}
	if err := l.store.Append(ctx, event); err != nil {
		return apperr.Wrap(apperr.AuditWriteFailure, err, "append audit event")
	}
	return nil
}

// RecordProcessStart/RecordProcessComplete/RecordProcessError are the
// pipeline lifecycle shorthands used by pkg/engine.
func (l *Logger) RecordProcessStart(ctx context.Context, requestID, correlationID string) error {
	return l.Record(ctx, models.AuditProcessStart, "request", requestID, requestID, "system", correlationID, nil, nil)
}

func (l *Logger) RecordProcessComplete(ctx context.Context, requestID, correlationID string) error {
	return l.Record(ctx, models.AuditProcessComplete, "request", requestID, requestID, "system", correlationID, nil, nil)
}

func (l *Logger) RecordProcessError(ctx context.Context, requestID, correlationID, errMsg string) error {
	return l.Record(ctx, models.AuditProcessError, "request", requestID, requestID, "system", correlationID, nil, map[string]any{"error": errMsg})
}

func (l *Logger) RecordConflictResolution(ctx context.Context, requestID, categoryResultID, correlationID string, conflict models.ConflictResolution) error {
	return l.Record(ctx, models.AuditConflictResolution, "category_result", categoryResultID, requestID, "system", correlationID, nil,
		map[string]any{"field": conflict.Field, "sources": conflict.Sources, "chosen": conflict.Chosen, "reason": conflict.Reason})
}

// History returns every audit event for a request, oldest first.
func (l *Logger) History(ctx context.Context, requestID string) ([]models.AuditEvent, error) {
	return l.store.ByRequestID(ctx, requestID)
}

// ByCorrelationID returns every audit event sharing a correlation id, the
// supplemental lookup used to replay a whole distributed trace across
// requests (see SPEC_FULL.md §12).
func (l *Logger) ByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditEvent, error) {
	return l.store.ByCorrelationID(ctx, correlationID)
}
