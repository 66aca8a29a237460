package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SourceConflict holds the schema definition for the SourceConflict entity,
// a child record of CategoryResult capturing one disagreement the merger
// had to resolve across providers.
type SourceConflict struct {
	ent.Schema
}

// Fields of the SourceConflict.
func (SourceConflict) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("source_conflict_id").
			Unique().
			Immutable(),
		field.String("category_result_id").
			Immutable(),
		field.String("conflict_type"),
		field.Text("description"),
		field.JSON("conflicting_source_ids", []string{}),
		field.String("resolution_strategy"),
		field.Time("resolved_at").
			Optional().
			Nillable(),
		field.Float("confidence_impact"),
		field.Bool("is_critical").
			Default(false),
	}
}

// Edges of the SourceConflict.
func (SourceConflict) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("category_result", CategoryResult.Type).
			Ref("source_conflicts").
			Field("category_result_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the SourceConflict.
func (SourceConflict) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("is_critical"),
	}
}
