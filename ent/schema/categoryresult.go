package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CategoryResult holds the schema definition for the CategoryResult entity:
// one (Request, Category) outcome, Phase 1 or Phase 2.
type CategoryResult struct {
	ent.Schema
}

// Fields of the CategoryResult.
func (CategoryResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("category_result_id").
			Unique().
			Immutable(),
		field.String("request_id").
			Immutable(),
		field.String("category_id").
			Immutable(),
		field.String("category_name"),
		field.Text("summary").
			Optional(),
		field.Float("confidence_score").
			Optional(),
		field.Float("data_quality_score").
			Optional(),
		field.Enum("status").
			Values("pending", "processing", "completed", "failed", "skipped").
			Default("pending"),
		field.Int64("processing_time_ms").
			Optional(),
		field.Int("retry_count").
			Default(0),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("skip_reason").
			Optional().
			Nillable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Int("api_calls_made").
			Default(0),
		field.Int("token_count").
			Default(0),
		field.Float("cost_estimate").
			Default(0),
	}
}

// Edges of the CategoryResult.
func (CategoryResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("request", Request.Type).
			Ref("category_results").
			Field("request_id").
			Unique().
			Required().
			Immutable(),
		edge.To("provider_responses", ProviderResponse.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("merged_data", MergedData.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("source_conflicts", SourceConflict.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the CategoryResult.
func (CategoryResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("request_id", "category_id").
			Unique(),
	}
}
