// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// providers.Adapter interface, the "licensed AI API" tier of the authority
// hierarchy (spec §4.3 -- weight 10).
package anthropic

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// Adapter calls the Anthropic Messages API for one category/prompt.
type Adapter struct {
	client anthropic.Client
	model  anthropic.Model
}

// New builds an Adapter. apiKey is read by the caller from the configured
// APIKeyEnv so credentials never live in pkg/config structs themselves.
func New(apiKey, model string) *Adapter {
	return &Adapter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

func (a *Adapter) Name() string               { return "anthropic_claude" }
func (a *Adapter) Kind() models.ProviderKind  { return models.ProviderLicensedAI }

func (a *Adapter) Call(ctx context.Context, q providers.Query) (providers.Response, error) {
	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxTokensOrDefault(q.MaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(q.Prompt)),
		},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "anthropic call failed")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return providers.Response{
		Provider:    a.Name(),
		Model:       string(a.model),
		Temperature: q.Temperature,
		RawText:     text,
		LatencyMS:   latency,
		TokenCount:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 2048
	}
	return n
}
