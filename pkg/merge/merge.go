// Package merge implements the cross-provider merge stage (spec §4.2
// "merge"): verified provider responses for one category are reconciled
// into one MergedData record, either by delegating to an LLM adapter
// (preferred) or by a deterministic authority-weighted fallback when no LLM
// merge adapter is configured or it fails.
package merge

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// LLMMerger performs a single LLM call that reconciles multiple provider
// texts; any providers.Adapter can serve this role.
type LLMMerger interface {
	Merge(ctx context.Context, category string, responses []models.ProviderResponse) (string, error)
}

// AdapterLLMMerger adapts a providers.Adapter into an LLMMerger by prompting
// it with the concatenated provider texts.
type AdapterLLMMerger struct {
	Adapter providers.Adapter
}

func (m AdapterLLMMerger) Merge(ctx context.Context, category string, responses []models.ProviderResponse) (string, error) {
	var sb strings.Builder
	sb.WriteString("Reconcile the following sources for category " + category + " into one coherent account, noting any factual conflicts:\n\n")
	for _, r := range responses {
		sb.WriteString("Source (" + r.Provider + "):\n" + r.RawText + "\n\n")
	}
	resp, err := m.Adapter.Call(ctx, providers.Query{Prompt: sb.String()})
	if err != nil {
		return "", err
	}
	return resp.RawText, nil
}

// Merger runs the merge stage for one category.
type Merger struct {
	llm LLMMerger
}

// New builds a Merger. llm may be nil, in which case every merge falls back
// to the weighted-concatenation strategy.
func New(llm LLMMerger) *Merger {
	return &Merger{llm: llm}
}

// Merge reconciles responses (already verified and authority-weighted) into
// a MergedData record. conflictStrategy names the category's configured
// ConflictResolutionStrategy, recorded for audit even though the weighted
// fallback is the only strategy currently implemented for automatic
// resolution.
func (m *Merger) Merge(ctx context.Context, categoryResultID, categoryID, conflictStrategy string, responses []models.ProviderResponse) models.MergedData {
	if len(responses) == 0 {
		return models.MergedData{CategoryResultID: categoryResultID, MergeMethod: models.MergeNone}
	}

	sources := sourceReferences(responses)

	if m.llm != nil {
		text, err := m.llm.Merge(ctx, categoryID, responses)
		if err == nil && strings.TrimSpace(text) != "" {
			return models.MergedData{
				CategoryResultID: categoryResultID,
				MergedText:       text,
				Confidence:       averageCredibility(responses),
				DataQualityScore: averageCredibility(responses),
				SourceReferences: sources,
				MergeMethod:      models.MergeLLMAssisted,
			}
		}
	}

	return m.weightedFallback(categoryResultID, conflictStrategy, responses, sources)
}

// weightedFallback picks the single highest-authority response verbatim and
// records every lower-weight divergence as a resolved conflict, per spec
// §4.2's requirement that merge failures still produce a usable result.
func (m *Merger) weightedFallback(categoryResultID, conflictStrategy string, responses []models.ProviderResponse, sources []models.SourceReference) models.MergedData {
	ranked := append([]models.ProviderResponse(nil), responses...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AuthorityWeight != ranked[j].AuthorityWeight {
			return ranked[i].AuthorityWeight > ranked[j].AuthorityWeight
		}
		return ranked[i].Credibility > ranked[j].Credibility
	})

	best := ranked[0]
	var conflicts []models.ConflictResolution
	for _, r := range ranked[1:] {
		if strings.TrimSpace(r.RawText) == strings.TrimSpace(best.RawText) {
			continue
		}
		conflicts = append(conflicts, models.ConflictResolution{
			Field:   "summary_text",
			Sources: []string{best.Provider, r.Provider},
			Chosen:  best.Provider,
			Reason:  "higher authority weight (" + conflictStrategy + ")",
		})
	}

	return models.MergedData{
		CategoryResultID:  categoryResultID,
		MergedText:        best.RawText,
		Confidence:        averageCredibility(responses),
		DataQualityScore:  float64(best.AuthorityWeight) / 10,
		SourceReferences:  sources,
		ConflictsResolved: conflicts,
		MergeMethod:       models.MergeFallbackWeighted,
	}
}

func sourceReferences(responses []models.ProviderResponse) []models.SourceReference {
	out := make([]models.SourceReference, 0, len(responses))
	for _, r := range responses {
		out = append(out, models.SourceReference{
			Provider: r.Provider, Model: r.Model,
			Weight: r.AuthorityWeight, AuthorityScore: r.AuthorityWeight,
		})
	}
	return out
}

func averageCredibility(responses []models.ProviderResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range responses {
		sum += r.Credibility
	}
	return sum / float64(len(responses))
}
