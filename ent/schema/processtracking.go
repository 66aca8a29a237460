package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// ProcessTracking holds the schema definition for the ProcessTracking
// entity: the 1:1 progress/status record for a Request.
type ProcessTracking struct {
	ent.Schema
}

// Fields of the ProcessTracking.
func (ProcessTracking) Fields() []ent.Field {
	return []ent.Field{
		field.String("request_id").
			StorageKey("request_id").
			Unique().
			Immutable(),
		field.Enum("status").
			Values("submitted", "collecting", "verifying", "merging", "summarizing", "completed", "failed", "cancelled").
			Default("submitted"),
		field.Int("progress_percent").
			Default(0),
		field.Int("categories_total"),
		field.Int("categories_completed").
			Default(0),
		field.Time("estimated_completion_at").
			Optional().
			Nillable(),
		field.JSON("stage_timestamps", map[string]interface{}{}).
			Comment("Stage name -> {started_at, completed_at}, request-wide history projection"),
		field.String("error_details").
			Optional().
			Nillable(),
	}
}

// Edges of the ProcessTracking.
func (ProcessTracking) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("request", Request.Type).
			Ref("tracking").
			Field("request_id").
			Unique().
			Required().
			Immutable(),
	}
}
