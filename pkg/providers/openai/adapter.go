// Package openai adapts github.com/sashabaranov/go-openai to the
// providers.Adapter interface, classified as "company-owned" in the
// authority hierarchy (spec §4.3 -- weight 2) unless reconfigured.
package openai

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// Adapter calls the Chat Completions API.
type Adapter struct {
	client *openai.Client
	model  string
	kind   models.ProviderKind
}

// New builds an Adapter. kind lets the caller reclassify a fine-tuned or
// dedicated deployment under a different authority tier.
func New(apiKey, model string, kind models.ProviderKind) *Adapter {
	return &Adapter{client: openai.NewClient(apiKey), model: model, kind: kind}
}

func (a *Adapter) Name() string              { return "openai_gpt" }
func (a *Adapter) Kind() models.ProviderKind { return a.kind }

func (a *Adapter) Call(ctx context.Context, q providers.Query) (providers.Response, error) {
	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: q.Prompt},
		},
		Temperature: float32(q.Temperature),
		MaxTokens:   maxTokensOrDefault(q.MaxTokens),
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "openai chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return providers.Response{}, apperr.New(apperr.TransientExternal, "openai returned no choices")
	}

	return providers.Response{
		Provider:    a.Name(),
		Model:       resp.Model,
		Temperature: q.Temperature,
		RawText:     resp.Choices[0].Message.Content,
		LatencyMS:   latency,
		TokenCount:  resp.Usage.TotalTokens,
	}, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 2048
	}
	return n
}
