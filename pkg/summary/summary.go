// Package summary implements the per-category summarization stage (spec
// §4.2 "summarize"): merged text is condensed to the category's configured
// SummaryStyle via an LLM call, with a truncation fallback if that call
// fails so the pipeline never blocks on prose generation alone.
package summary

import (
	"context"
	"strconv"
	"strings"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// Generator produces the final summary text for a category result.
type Generator struct {
	adapter providers.Adapter
}

// New builds a Generator. adapter may be nil, in which case Generate always
// uses the truncation fallback.
func New(adapter providers.Adapter) *Generator {
	return &Generator{adapter: adapter}
}

// Generate renders merged into prose matching style. On adapter failure (or
// when no adapter is configured) it falls back to a word-count-bounded
// truncation of the merged text, flagged via the returned bool.
func (g *Generator) Generate(ctx context.Context, style models.SummaryStyle, merged models.MergedData) (text string, usedFallback bool) {
	if g.adapter != nil {
		prompt := buildPrompt(style, merged)
		resp, err := g.adapter.Call(ctx, providers.Query{Prompt: prompt, MaxTokens: targetTokens(style)})
		if err == nil && strings.TrimSpace(resp.RawText) != "" {
			return resp.RawText, false
		}
	}
	return truncate(merged.MergedText, targetWords(style)), true
}

func buildPrompt(style models.SummaryStyle, merged models.MergedData) string {
	sys := style.SystemPrompt
	if sys == "" {
		sys = "Summarize the following pharmaceutical research findings concisely and factually."
	}
	tmpl := style.UserTemplate
	if tmpl == "" {
		tmpl = "Findings:\n{{.Text}}\n\nTarget length: {{.Words}} words."
	}
	words := targetWords(style)
	body := strings.ReplaceAll(tmpl, "{{.Text}}", merged.MergedText)
	body = strings.ReplaceAll(body, "{{.Words}}", strconv.Itoa(words))
	return sys + "\n\n" + body
}

func targetWords(style models.SummaryStyle) int {
	if style.TargetWordCount > 0 {
		return style.TargetWordCount
	}
	switch style.Length {
	case models.LengthCompact:
		return 100
	case models.LengthDeep:
		return 500
	default:
		return 250
	}
}

func targetTokens(style models.SummaryStyle) int {
	return targetWords(style) * 2
}

func truncate(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
