// Package providers defines the LLM/search adapter surface (spec §4.4/§4.8)
// and a resilience wrapper shared by every concrete adapter.
package providers

import (
	"context"
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Query is one request to a provider for a given category/prompt.
type Query struct {
	DrugName       string
	DeliveryMethod models.DeliveryMethod
	CategoryID     string
	Prompt         string
	Temperature    float64
	MaxTokens      int
}

// Response is a normalized provider result before authority weighting.
type Response struct {
	Provider    string
	Model       string
	Temperature float64
	RawText     string
	CitedURLs   []string
	LatencyMS   int64
	TokenCount  int
	Cost        float64
}

// Adapter is implemented by every concrete provider (anthropic, bedrock,
// openai, search). Call returns apperr-tagged errors so Retrying/C7 can
// distinguish transient failures from permanent ones.
type Adapter interface {
	Name() string
	Kind() models.ProviderKind
	Call(ctx context.Context, q Query) (Response, error)
}

// Clock abstracts time.Now for latency measurement so tests can inject a
// deterministic clock instead of relying on wall time.
type Clock func() time.Time

// RealClock is the production Clock.
func RealClock() time.Time { return time.Now() }
