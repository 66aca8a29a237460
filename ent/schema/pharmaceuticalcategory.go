package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PharmaceuticalCategory holds the schema definition for the
// PharmaceuticalCategory entity. Reference data, not per-request: one row
// per analysis category configured via pipeline.yaml.
type PharmaceuticalCategory struct {
	ent.Schema
}

// Fields of the PharmaceuticalCategory.
func (PharmaceuticalCategory) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("category_id").
			Unique().
			Immutable(),
		field.String("name"),
		field.Int("phase").
			Comment("1 = data collection, 2 = scored analysis"),
		field.Int("display_order"),
		field.Bool("is_active").
			Default(true),
		field.Text("prompt_template"),
		field.JSON("verification_criteria", []string{}).
			Optional(),
		field.JSON("processing_rules", map[string]interface{}{}).
			Optional(),
		field.String("conflict_resolution_strategy"),
		field.JSON("stage_toggles", map[string]interface{}{}).
			Comment("collect/verify/merge/summarize booleans"),
		field.JSON("summary_style", map[string]interface{}{}).
			Comment("name, system_prompt, user_template, length, target_word_count"),
	}
}

// Edges of the PharmaceuticalCategory.
func (PharmaceuticalCategory) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("dependencies", CategoryDependency.Type),
	}
}

// Indexes of the PharmaceuticalCategory.
func (PharmaceuticalCategory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("phase", "display_order"),
	}
}
