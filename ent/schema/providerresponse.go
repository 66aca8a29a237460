package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProviderResponse holds the schema definition for the ProviderResponse
// entity: the raw, persisted record of one provider call, retained until
// retention_expires_at per spec §4.12.
type ProviderResponse struct {
	ent.Schema
}

// Fields of the ProviderResponse.
func (ProviderResponse) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("provider_response_id").
			Unique().
			Immutable(),
		field.String("category_result_id").
			Immutable(),
		field.String("provider"),
		field.String("model"),
		field.Float("temperature").
			Optional(),
		field.JSON("query_parameters", map[string]interface{}{}).
			Optional(),
		field.Text("raw_text"),
		field.JSON("cited_urls", []string{}).
			Optional(),
		field.Int64("latency_ms"),
		field.Int("token_count").
			Default(0),
		field.Float("cost").
			Default(0),
		field.String("checksum").
			Comment("Content hash, used to detect identical raw responses across providers"),
		field.Time("retention_expires_at"),
		field.Enum("kind").
			Values("licensed_ai", "government", "peer_reviewed", "industry", "company_owned", "news", "unknown"),
		field.Int("authority_weight"),
		field.Float("credibility"),
	}
}

// Edges of the ProviderResponse.
func (ProviderResponse) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("category_result", CategoryResult.Type).
			Ref("provider_responses").
			Field("category_result_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ProviderResponse.
func (ProviderResponse) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("retention_expires_at"),
	}
}
