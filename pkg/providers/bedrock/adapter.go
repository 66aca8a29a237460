// Package bedrock adapts AWS Bedrock (aws-sdk-go-v2/service/bedrockruntime)
// to the providers.Adapter interface, a second "licensed AI API" tier
// provider so the authority hierarchy's top weight isn't single-vendor.
package bedrock

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// Adapter calls the Bedrock Converse API for one model.
type Adapter struct {
	client  *bedrockruntime.Client
	modelID string
}

// New builds an Adapter from an already-configured bedrockruntime client
// (region/credentials resolved by the caller via aws-sdk-go-v2/config).
func New(client *bedrockruntime.Client, modelID string) *Adapter {
	return &Adapter{client: client, modelID: modelID}
}

func (a *Adapter) Name() string              { return "bedrock_titan" }
func (a *Adapter) Kind() models.ProviderKind { return models.ProviderLicensedAI }

func (a *Adapter) Call(ctx context.Context, q providers.Query) (providers.Response, error) {
	start := time.Now()
	out, err := a.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(a.modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: q.Prompt}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(q.Temperature)),
			MaxTokens:   aws.Int32(int32(maxTokensOrDefault(q.MaxTokens))),
		},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "bedrock converse failed")
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return providers.Response{}, apperr.New(apperr.TransientExternal, "bedrock returned unexpected output shape")
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}

	var tokens int
	if out.Usage != nil {
		tokens = int(aws.ToInt32(out.Usage.InputTokens) + aws.ToInt32(out.Usage.OutputTokens))
	}

	return providers.Response{
		Provider:    a.Name(),
		Model:       a.modelID,
		Temperature: q.Temperature,
		RawText:     text,
		LatencyMS:   latency,
		TokenCount:  tokens,
	}, nil
}

func maxTokensOrDefault(n int) int32 {
	if n <= 0 {
		return 2048
	}
	return int32(n)
}
