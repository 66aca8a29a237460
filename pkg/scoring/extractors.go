package scoring

import (
	"context"
	"regexp"
	"strconv"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// unitFor maps a parameter to the unit label its extracted value is reported
// in; only used for display, the rubric compares bare numeric values.
func unitFor(p models.Parameter) string {
	switch p {
	case models.ParamDose:
		return "mg/day"
	case models.ParamMolecularWeight:
		return "Da"
	case models.ParamMeltingPoint:
		return "C"
	default:
		return ""
	}
}

// Phase1SummaryExtractor scans already-collected Phase-1 category summaries
// for a numeric mention of the parameter, the cheapest waterfall step since
// it makes no additional provider call (spec §4.8 step 1).
type Phase1SummaryExtractor struct {
	Keywords map[models.Parameter][]string
}

func (e Phase1SummaryExtractor) Method() models.ExtractionMethod { return models.ExtractPhase1Summary }

func (e Phase1SummaryExtractor) Extract(_ context.Context, _ models.Request, param models.Parameter, phase1 []models.CategoryResult) (float64, string, bool) {
	keywords := e.Keywords[param]
	for _, result := range phase1 {
		if result.Status != models.CategoryCompleted {
			continue
		}
		if !containsAny(result.Summary, keywords) {
			continue
		}
		if v, ok := firstNumber(result.Summary); ok {
			return v, unitFor(param), true
		}
	}
	return 0, "", false
}

// DedicatedLLMExtractor asks a provider adapter a targeted question for the
// parameter when the Phase-1 summaries didn't surface one (spec §4.8 step
// 2).
type DedicatedLLMExtractor struct {
	Adapter providers.Adapter
}

func (e DedicatedLLMExtractor) Method() models.ExtractionMethod { return models.ExtractDedicatedLLM }

func (e DedicatedLLMExtractor) Extract(ctx context.Context, req models.Request, param models.Parameter, _ []models.CategoryResult) (float64, string, bool) {
	if e.Adapter == nil {
		return 0, "", false
	}
	prompt := "What is the " + string(param) + " of " + req.DrugName + " for " + string(req.DeliveryMethod) + " delivery? Answer with a single number and unit."
	resp, err := e.Adapter.Call(ctx, providers.Query{Prompt: prompt, DrugName: req.DrugName, DeliveryMethod: req.DeliveryMethod})
	if err != nil {
		return 0, "", false
	}
	v, ok := firstNumber(resp.RawText)
	if !ok {
		return 0, "", false
	}
	return v, unitFor(param), true
}

// LiveSearchExtractor is the last-resort waterfall step: a web search
// provider (spec §4.8 step 3).
type LiveSearchExtractor struct {
	Adapter providers.Adapter
}

func (e LiveSearchExtractor) Method() models.ExtractionMethod { return models.ExtractLiveSearch }

func (e LiveSearchExtractor) Extract(ctx context.Context, req models.Request, param models.Parameter, _ []models.CategoryResult) (float64, string, bool) {
	if e.Adapter == nil {
		return 0, "", false
	}
	prompt := string(param) + " of " + req.DrugName
	resp, err := e.Adapter.Call(ctx, providers.Query{Prompt: prompt, DrugName: req.DrugName, DeliveryMethod: req.DeliveryMethod})
	if err != nil {
		return 0, "", false
	}
	v, ok := firstNumber(resp.RawText)
	if !ok {
		return 0, "", false
	}
	return v, unitFor(param), true
}

func firstNumber(text string) (float64, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, k := range keywords {
		if regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k)).MatchString(text) {
			return true
		}
	}
	return false
}
