// Package engine wires C1–C13 together into the end-to-end request pipeline
// (spec §4.1): submission creates a Request, the scheduler runs Phase 1 then
// Phase 2, the scorer and report composer derive the final artifact, and the
// result is persisted and, if configured, delivered to a callback URL.
package engine

import (
	"context"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/config"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/providers/anthropic"
	"github.com/sells-group/pharma-pipeline/pkg/providers/bedrock"
	"github.com/sells-group/pharma-pipeline/pkg/providers/openai"
	"github.com/sells-group/pharma-pipeline/pkg/providers/search"
)

// BuildRegistry constructs one backoff/circuit-breaker-wrapped Adapter per
// configured provider credential, keyed by provider name.
func BuildRegistry(ctx context.Context, reg config.ProviderRegistry) (map[string]providers.Adapter, error) {
	out := make(map[string]providers.Adapter, len(reg.Providers))
	for name, cred := range reg.Providers {
		apiKey := os.Getenv(cred.APIKeyEnv)

		var base providers.Adapter
		switch name {
		case "anthropic_claude":
			base = anthropic.New(apiKey, cred.Model)
		case "bedrock_titan":
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, apperr.Wrap(apperr.FatalInternal, err, "load aws config for bedrock")
			}
			base = bedrock.New(bedrockruntime.NewFromConfig(awsCfg), cred.Model)
		case "openai_gpt":
			base = openai.New(apiKey, cred.Model, cred.Kind)
		case "tavily_search":
			base = search.New(apiKey, search.WithBaseURL(cred.BaseURL))
		default:
			continue
		}
		out[name] = providers.NewRetrying(base, cred.MaxRetries)
	}
	return out, nil
}
