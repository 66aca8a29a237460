package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditEvent holds the schema definition for the AuditEvent entity: an
// immutable, append-only log entry (spec §4.11). Never updated or deleted
// outside the retention sweep.
type AuditEvent struct {
	ent.Schema
}

// Fields of the AuditEvent.
func (AuditEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("audit_event_id").
			Unique().
			Immutable(),
		field.Enum("event_type").
			Values("create", "update", "delete", "process_start", "process_complete",
				"process_error", "source_verification", "conflict_resolution", "data_export", "user_access").
			Immutable(),
		field.String("entity_type").
			Immutable(),
		field.String("entity_id").
			Immutable(),
		field.String("request_id").
			Optional().
			Immutable(),
		field.JSON("old_values", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("new_values", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.String("actor").
			Immutable(),
		field.String("correlation_id").
			Optional().
			Immutable(),
		field.Time("timestamp").
			Default(time.Now).
			Immutable(),
		field.String("ip_address").
			Optional().
			Immutable(),
		field.String("user_agent").
			Optional().
			Immutable(),
	}
}

// Edges of the AuditEvent.
func (AuditEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("request", Request.Type).
			Ref("audit_events").
			Field("request_id").
			Unique().
			Immutable(),
	}
}

// Indexes of the AuditEvent.
func (AuditEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("request_id"),
		index.Fields("correlation_id"),
		index.Fields("timestamp"),
	}
}
