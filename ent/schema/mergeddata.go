package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// MergedData holds the schema definition for the MergedData entity: the
// canonical per-category merge artifact produced by the merger stage.
type MergedData struct {
	ent.Schema
}

// Fields of the MergedData.
func (MergedData) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("merged_data_id").
			Unique().
			Immutable(),
		field.String("category_result_id").
			Unique().
			Immutable(),
		field.Text("merged_text"),
		field.JSON("structured_data", map[string]interface{}{}).
			Optional(),
		field.Float("confidence"),
		field.Float("data_quality_score"),
		field.JSON("source_references", []interface{}{}).
			Comment("provider, model, weight, authority_score per contributing source"),
		field.JSON("conflicts_resolved", []interface{}{}).
			Optional(),
		field.JSON("key_findings", []string{}).
			Optional(),
		field.Enum("merge_method").
			Values("llm_assisted", "fallback_weighted", "summary_extraction", "none"),
	}
}

// Edges of the MergedData.
func (MergedData) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("category_result", CategoryResult.Type).
			Ref("merged_data").
			Field("category_result_id").
			Unique().
			Required().
			Immutable(),
	}
}
