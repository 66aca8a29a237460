package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Phase2ParameterResult holds the schema definition for the
// Phase2ParameterResult entity: one row per (Request, Parameter) scored
// value, weighted per spec §4.8.
type Phase2ParameterResult struct {
	ent.Schema
}

// Fields of the Phase2ParameterResult.
func (Phase2ParameterResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("request_id").
			Immutable(),
		field.Enum("parameter").
			Values("Dose", "MolecularWeight", "MeltingPoint", "LogP").
			Immutable(),
		field.Float("extracted_value").
			Optional().
			Nillable(),
		field.String("unit").
			Optional(),
		field.Int("score").
			Optional().
			Nillable(),
		field.Float("weighted_score"),
		field.Text("rationale").
			Optional(),
		field.Enum("extraction_method").
			Values("phase1_summary", "dedicated_llm", "live_search", "none"),
	}
}

// Edges of the Phase2ParameterResult.
func (Phase2ParameterResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("request", Request.Type).
			Ref("parameter_results").
			Field("request_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Phase2ParameterResult.
func (Phase2ParameterResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("request_id", "parameter").
			Unique(),
	}
}
