package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/ratelimit"
)

// FanOutCollector calls every registered provider adapter concurrently for
// one category and implements stageexec.Collector. Collection is treated as
// a single stage regardless of how many providers back it (spec §4.1), so a
// single slow or failing provider never blocks the others; its response is
// simply absent from the returned slice.
type FanOutCollector struct {
	adapters map[string]providers.Adapter
	limiter  ratelimit.Limiter
}

// NewFanOutCollector builds a FanOutCollector over every registered adapter.
func NewFanOutCollector(adapters map[string]providers.Adapter, limiter ratelimit.Limiter) *FanOutCollector {
	return &FanOutCollector{adapters: adapters, limiter: limiter}
}

// Collect implements stageexec.Collector.
func (c *FanOutCollector) Collect(ctx context.Context, q providers.Query) ([]models.ProviderResponse, error) {
	var mu sync.Mutex
	var out []models.ProviderResponse

	g, gctx := errgroup.WithContext(ctx)
	for name, adapter := range c.adapters {
		name, adapter := name, adapter
		g.Go(func() error {
			allowed, err := c.limiter.Allow(gctx, name)
			if err != nil {
				slog.WarnContext(gctx, "rate limiter check failed, allowing call", "provider", name, "error", err)
			} else if !allowed {
				slog.WarnContext(gctx, "provider rate limited for this round", "provider", name)
				return nil
			}

			resp, err := adapter.Call(gctx, q)
			if err != nil {
				slog.WarnContext(gctx, "provider call failed", "provider", name, "error", err)
				return nil
			}

			mu.Lock()
			out = append(out, models.ProviderResponse{
				ID: uuid.NewString(), Provider: resp.Provider, Model: resp.Model, Temperature: resp.Temperature,
				RawText: resp.RawText, CitedURLs: resp.CitedURLs, LatencyMS: resp.LatencyMS,
				TokenCount: resp.TokenCount, Cost: resp.Cost, Kind: adapter.Kind(),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}
