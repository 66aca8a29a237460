package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// RequestFinalOutput holds the schema definition for the
// RequestFinalOutput entity: the composed report snapshot for a completed
// Request. request_id is unique, so there is one row per Request and a
// reprocess overwrites the earlier snapshot in place.
type RequestFinalOutput struct {
	ent.Schema
}

// Fields of the RequestFinalOutput.
func (RequestFinalOutput) Fields() []ent.Field {
	return []ent.Field{
		field.String("request_id").
			Unique().
			Immutable(),
		field.JSON("document", map[string]interface{}{}).
			Comment("Full composed report, spec §4.9"),
		field.Float("td_score"),
		field.Float("tm_score"),
		field.Enum("td_verdict").
			Values("Go", "Conditional-Go", "No-Go"),
		field.Enum("tm_verdict").
			Values("Go", "Conditional-Go", "No-Go"),
		field.Bool("go_decision"),
		field.String("investment_priority"),
		field.String("risk_level"),
		field.Int("version").
			Default(1),
		field.Time("generated_at").
			Default(time.Now),
	}
}

// Edges of the RequestFinalOutput.
func (RequestFinalOutput) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("request", Request.Type).
			Ref("final_output").
			Field("request_id").
			Unique().
			Required().
			Immutable(),
	}
}
