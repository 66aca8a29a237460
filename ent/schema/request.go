package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Request holds the schema definition for the Request entity.
// The top-level unit of work: one drug evaluated against one delivery route.
type Request struct {
	ent.Schema
}

// Fields of the Request.
func (Request) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("request_id").
			Unique().
			Immutable(),
		field.String("drug_name"),
		field.Enum("delivery_method").
			Values("transdermal", "transmucosal"),
		field.Enum("priority").
			Values("low", "normal", "high", "urgent").
			Default("normal"),
		field.String("callback_url").
			Optional().
			Nillable(),
		field.String("correlation_id").
			Comment("Shared across every Request created from one batch submission"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Request.
func (Request) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("tracking", ProcessTracking.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("category_results", CategoryResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("final_output", RequestFinalOutput.Type).
			Unique().
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("parameter_results", Phase2ParameterResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("audit_events", AuditEvent.Type),
	}
}

// Indexes of the Request.
func (Request) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("correlation_id"),
		index.Fields("created_at"),
	}
}
