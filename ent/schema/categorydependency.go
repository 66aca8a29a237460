package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CategoryDependency holds the schema definition for the CategoryDependency
// entity: a directed edge, dependent category requires required category's
// Phase-1 result before its own Phase-2 prompt is enriched.
type CategoryDependency struct {
	ent.Schema
}

// Fields of the CategoryDependency.
func (CategoryDependency) Fields() []ent.Field {
	return []ent.Field{
		field.String("dependent_id"),
		field.String("required_id"),
	}
}

// Edges of the CategoryDependency.
func (CategoryDependency) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("dependent", PharmaceuticalCategory.Type).
			Ref("dependencies").
			Field("dependent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CategoryDependency.
func (CategoryDependency) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("dependent_id", "required_id").
			Unique(),
	}
}
