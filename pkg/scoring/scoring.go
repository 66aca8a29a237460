// Package scoring implements the Phase-2 parameter scoring waterfall and
// weighted verdict (spec §4.8): each of the four physicochemical parameters
// is extracted by the first method in the waterfall that yields a value,
// scored 0-9 against the configured rubric, weighted, and summed into a
// Go/Conditional-Go/No-Go verdict per delivery route.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

// Range is the rubric shape the scorer consumes; pkg/config.ScoringRange
// satisfies it via an adapter in pkg/config or a direct field-for-field copy
// at the call site.
type Range struct {
	Parameter      models.Parameter
	DeliveryMethod models.DeliveryMethod
	Min, Max       float64
	Score          int
	IsExclusion    bool
	RangeText      string
}

// Extractor pulls a parameter value using one waterfall method. Returning
// ok=false tells the waterfall to try the next method.
type Extractor interface {
	Extract(ctx context.Context, req models.Request, param models.Parameter, phase1 []models.CategoryResult) (value float64, unit string, ok bool)
	Method() models.ExtractionMethod
}

// outOfRangeText is the literal spec §4.8 mandates for a value that matches
// no configured rubric row.
const outOfRangeText = "Out of Range"

// Scorer computes Phase2ParameterResult rows and aggregate RouteScores.
type Scorer struct {
	waterfall []Extractor
	ranges    []Range
	narrator  providers.Adapter
}

// New builds a Scorer. waterfall must be supplied in priority order:
// phase1_summary, dedicated_llm, live_search (spec §4.8); a "none" result is
// synthesized automatically when every extractor declines. narrator may be
// nil, in which case per-parameter rationales always use the deterministic
// fallback template.
func New(waterfall []Extractor, ranges []Range, narrator providers.Adapter) *Scorer {
	return &Scorer{waterfall: waterfall, ranges: ranges, narrator: narrator}
}

// ScoreRequest runs the waterfall for all four parameters on the delivery
// route named by req.DeliveryMethod (a request is scored for that route
// only; callers wanting both routes call twice with req.DeliveryMethod
// swapped, per spec §4.8's "runs twice, once per route").
func (s *Scorer) ScoreRequest(ctx context.Context, req models.Request, phase1 []models.CategoryResult) models.RouteScore {
	params := make([]models.Phase2ParameterResult, 0, len(models.ParameterWeights))
	var total float64

	for _, param := range orderedParameters() {
		result := s.scoreParameter(ctx, req, param, phase1)
		params = append(params, result)
		total += result.WeightedScore
	}

	return models.RouteScore{
		Route: req.DeliveryMethod, Parameters: params, Total: total, Verdict: Verdict(total),
		DecisionCategory:   DecisionCategory(total),
		InvestmentPriority: InvestmentPriority(total),
		RiskLevel:          RiskLevel(total),
		SuccessProbability: SuccessProbability(total),
	}
}

func (s *Scorer) scoreParameter(ctx context.Context, req models.Request, param models.Parameter, phase1 []models.CategoryResult) models.Phase2ParameterResult {
	for _, extractor := range s.waterfall {
		value, unit, ok := extractor.Extract(ctx, req, param, phase1)
		if !ok {
			continue
		}
		score, isExclusion, rangeText := s.lookup(param, req.DeliveryMethod, value)
		weight := models.ParameterWeights[param]
		weighted := 0.0
		if !isExclusion {
			weighted = float64(score) * weight
		}
		return models.Phase2ParameterResult{
			RequestID: req.ID, Parameter: param, ExtractedValue: &value, Unit: unit,
			Score: &score, WeightedScore: weighted, ExtractionMethod: extractor.Method(),
			Rationale: s.rationale(ctx, req, param, value, score, rangeText),
		}
	}
	return models.Phase2ParameterResult{
		RequestID: req.ID, Parameter: param, ExtractionMethod: models.ExtractNone,
		Rationale: "no extraction method produced a value",
	}
}

// rationale generates a one-sentence explanation of why param received
// score, via a low-temperature LLM call, falling back to a deterministic
// template on any failure or when no narrator is configured (spec §4.8).
func (s *Scorer) rationale(ctx context.Context, req models.Request, param models.Parameter, value float64, score int, rangeText string) string {
	fallback := fmt.Sprintf("Score %d assigned based on %s value of %v in range %s", score, param, value, rangeText)
	if s.narrator == nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"Generate a concise 1-sentence rationale explaining why %s received a score of %d for %s.\n\n"+
			"Parameter: %s\nValue: %v\nScore: %d\nRange: %s\nDelivery Method: %s\n\n"+
			"Requirements:\n- Exactly ONE sentence\n- Explain the clinical/pharmaceutical significance\n"+
			"- Reference the parameter value and range\n- Be specific and technical",
		req.DrugName, score, param, param, value, score, rangeText, req.DeliveryMethod,
	)
	resp, err := s.narrator.Call(ctx, providers.Query{Prompt: prompt, Temperature: 0.3, MaxTokens: 100})
	if err != nil || strings.TrimSpace(resp.RawText) == "" {
		return fallback
	}
	return strings.TrimSpace(resp.RawText)
}

// lookup finds the rubric row that bounds value for (param, route). On a
// boundary overlap between rows, spec §4.8 requires preferring the
// non-exclusion row, then the higher score, then the narrower range. An
// unmatched value (misconfigured rubric or genuinely out-of-range input)
// scores 0 and is flagged an exclusion rather than panicking.
func (s *Scorer) lookup(param models.Parameter, route models.DeliveryMethod, value float64) (score int, isExclusion bool, rangeText string) {
	var best *Range
	for i := range s.ranges {
		r := &s.ranges[i]
		if r.Parameter != param || r.DeliveryMethod != route {
			continue
		}
		matches := (value >= r.Min && value < r.Max) || (math.IsInf(r.Max, 1) && value >= r.Min)
		if !matches {
			continue
		}
		if best == nil || betterMatch(r, best) {
			best = r
		}
	}
	if best == nil {
		return 0, true, outOfRangeText
	}
	return best.Score, best.IsExclusion, best.RangeText
}

// betterMatch reports whether candidate should be preferred over current
// under spec §4.8's tie-break order: non-exclusion first, then higher
// score, then the narrower range.
func betterMatch(candidate, current *Range) bool {
	if candidate.IsExclusion != current.IsExclusion {
		return !candidate.IsExclusion
	}
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return rangeWidth(candidate) < rangeWidth(current)
}

func rangeWidth(r *Range) float64 {
	if math.IsInf(r.Max, 1) {
		return math.MaxFloat64
	}
	return r.Max - r.Min
}

func orderedParameters() []models.Parameter {
	return []models.Parameter{models.ParamDose, models.ParamMolecularWeight, models.ParamMeltingPoint, models.ParamLogP}
}

// Verdict maps a weighted total (0-9 scale) to the spec §4.8 Go/Conditional-Go/No-Go thresholds.
func Verdict(total float64) models.Verdict {
	switch {
	case total >= 7:
		return models.VerdictGo
	case total >= 5:
		return models.VerdictConditionalGo
	default:
		return models.VerdictNoGo
	}
}

// DecisionCategory maps total directly to spec §4.8's suitability tiers,
// which are independent of (and finer-grained than) the Go/Conditional-Go/
// No-Go verdict.
func DecisionCategory(total float64) string {
	switch {
	case total >= 7.5:
		return "Highly Suitable"
	case total >= 6.0:
		return "Suitable"
	case total >= 4.5:
		return "Moderate"
	default:
		return "Limited Suitability"
	}
}

// InvestmentPriority maps total directly to spec §4.8's development
// priority thresholds.
func InvestmentPriority(total float64) string {
	switch {
	case total >= 7.5:
		return "High"
	case total >= 5.5:
		return "Medium"
	default:
		return "Low"
	}
}

// RiskLevel maps total to spec §4.8's risk thresholds, which mirror the
// Go/Conditional-Go/No-Go verdict boundaries.
func RiskLevel(total float64) string {
	switch {
	case total >= 7.0:
		return "Low"
	case total >= 5.0:
		return "Medium"
	default:
		return "High"
	}
}

// SuccessProbability maps total directly to spec §4.8's success-probability
// thresholds.
func SuccessProbability(total float64) string {
	switch {
	case total >= 7.5:
		return "High"
	case total >= 6.0:
		return "Medium-High"
	case total >= 4.5:
		return "Medium"
	default:
		return "Low"
	}
}
