// Package report implements the final report composer (spec §4.9): it
// assembles every Phase-1 category summary, the Phase-2 scoring matrix for
// both delivery routes, the data-coverage scorecard, and LLM-generated
// executive-summary/recommendations sections into one RequestFinalOutput
// document.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/scoring"
)

// NarrativeGenerator produces the executive-summary and recommendations
// prose from the assembled scoring data. Any providers.Adapter can serve
// this role; a nil NarrativeGenerator forces the deterministic fallback.
type NarrativeGenerator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// AdapterNarrativeGenerator adapts a providers.Adapter into a NarrativeGenerator.
type AdapterNarrativeGenerator struct {
	Adapter providers.Adapter
}

func (g AdapterNarrativeGenerator) Narrate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Adapter.Call(ctx, providers.Query{Prompt: prompt, Temperature: 0.3, MaxTokens: 1000})
	if err != nil {
		return "", err
	}
	return resp.RawText, nil
}

// Composer builds the final document.
type Composer struct {
	narrator NarrativeGenerator
}

// New builds a Composer. narrator may be nil.
func New(narrator NarrativeGenerator) *Composer {
	return &Composer{narrator: narrator}
}

// Compose assembles the final output. td/tm are the scoring results for the
// transdermal and transmucosal routes respectively; a route not evaluated
// for this request may be passed as a zero-value models.RouteScore and is
// omitted from the verdict fields other than its zero score.
func (c *Composer) Compose(ctx context.Context, req models.Request, phase1 []models.CategoryResult, phase2 []models.CategoryResult, td, tm models.RouteScore) models.RequestFinalOutput {
	structured := map[string]any{}

	for _, result := range phase1 {
		if result.Status == models.CategoryCompleted {
			structured[result.CategoryID] = map[string]any{
				"name":    result.CategoryName,
				"summary": result.Summary,
			}
		}
	}

	executiveSummary := c.executiveSummary(ctx, req, td, tm)
	recommendations := c.recommendations(ctx, req, td, tm, executiveSummary)

	structured["executive_summary_and_decision"] = executiveSummary
	structured["suitability_matrix"] = suitabilityMatrix(td, tm)
	structured["data_coverage_scorecard"] = dataCoverageScorecard(phase1)
	structured["recommendations"] = recommendations

	decision, _ := executiveSummary["decision"].(string)
	goDecision := decision == "GO" || td.Verdict == models.VerdictGo || tm.Verdict == models.VerdictGo

	return models.RequestFinalOutput{
		RequestID: req.ID,
		Document: map[string]any{
			"request_id":       req.ID,
			"webhookType":      "drug",
			"unstructured_data": "",
			"structured_data":  structured,
		},
		TDScore: td.Total, TMScore: tm.Total,
		TDVerdict: td.Verdict, TMVerdict: tm.Verdict,
		GoDecision:         goDecision,
		InvestmentPriority: bestOf(td.InvestmentPriority, tm.InvestmentPriority),
		RiskLevel:          bestOf(td.RiskLevel, tm.RiskLevel),
		Version:            1,
		GeneratedAt:        time.Now(),
	}
}

// executiveSummary produces the {summary, data[], key_summary_points,
// decision, investment_priority, risk_level} object from spec §4.9. The
// narrator is asked to return that exact JSON shape; anything it produces
// that doesn't parse as a JSON object falls back to the deterministic
// rule-based summary, matching the try/except pattern this stage is
// grounded on.
func (c *Composer) executiveSummary(ctx context.Context, req models.Request, td, tm models.RouteScore) map[string]any {
	if c.narrator != nil {
		prompt := executiveSummaryPrompt(req, td, tm)
		if text, err := c.narrator.Narrate(ctx, prompt); err == nil {
			var parsed map[string]any
			if json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed) == nil && parsed["decision"] != nil {
				return parsed
			}
		}
	}
	return fallbackExecutiveSummary(req, td, tm)
}

func executiveSummaryPrompt(req models.Request, td, tm models.RouteScore) string {
	return fmt.Sprintf(
		"Generate an executive summary and GO/NO-GO decision for the following drug development opportunity:\n\n"+
			"Drug: %s\nDelivery Method: %s\n\n"+
			"Suitability Scores:\n- Transdermal: %.1f/9 (%s)\n- Transmucosal: %.1f/9 (%s)\n\n"+
			"Generate a concise executive summary (2-3 sentences) and provide a GO/NO-GO/CONDITIONAL decision, "+
			"investment priority (Low/Medium/High), risk level (Low/Medium/High), and 5-7 key strategic points.\n\n"+
			"Return ONLY valid JSON with keys: summary, data (array of {decision, justification, key_criteria, risk_level}), "+
			"key_summary_points (object), decision, investment_priority, risk_level.",
		req.DrugName, req.DeliveryMethod, td.Total, td.Verdict, tm.Total, tm.Verdict,
	)
}

// fallbackExecutiveSummary is used whenever the narrator is unavailable or
// fails, so the report is still complete (spec §4.9 failure handling).
func fallbackExecutiveSummary(req models.Request, td, tm models.RouteScore) map[string]any {
	best := td
	if tm.Total > td.Total {
		best = tm
	}

	decision, priority, risk := "NO-GO", "Low", "High"
	switch {
	case best.Total >= 7.0:
		decision, priority, risk = "GO", "High", "Medium"
	case best.Total >= 5.0:
		decision, priority, risk = "CONDITIONAL", "Medium", "Medium"
	}
	category := strings.ToLower(scoring.DecisionCategory(best.Total))

	return map[string]any{
		"summary": fmt.Sprintf(
			"%s shows %s potential for %s delivery with a suitability score of %s/9. %s decision recommended based on technical feasibility and market analysis.",
			req.DrugName, category, req.DeliveryMethod, scoreString(best.Total), decision,
		),
		"data": []map[string]any{
			{
				"decision":      decision,
				"justification": fmt.Sprintf("Suitability score of %s/9 indicates %s potential", scoreString(best.Total), category),
				"key_criteria":  "Suitability score, market size, technical feasibility",
				"risk_level":    risk,
			},
		},
		"key_summary_points": map[string]any{
			"decision":            fmt.Sprintf("%s - %s", decision, scoring.DecisionCategory(best.Total)),
			"market_size":         "N/A",
			"growth_rate":         "N/A",
			"patent_timing":       "See detailed patent analysis",
			"formulation_focus":   string(req.DeliveryMethod),
			"geographic_strategy": "Global opportunity",
			"investment_level":    priority + " priority",
			"risk_assessment":     risk + " risk level",
		},
		"decision":            decision,
		"investment_priority": priority,
		"risk_level":          risk,
	}
}

// recommendations produces the {summary, data[]} strategic recommendations
// object, following the same narrate-then-fall-back pattern as
// executiveSummary.
func (c *Composer) recommendations(ctx context.Context, req models.Request, td, tm models.RouteScore, executive map[string]any) map[string]any {
	decision, _ := executive["decision"].(string)
	if c.narrator != nil {
		prompt := recommendationsPrompt(req, td, tm, decision)
		if text, err := c.narrator.Narrate(ctx, prompt); err == nil {
			var parsed map[string]any
			if json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed) == nil && parsed["data"] != nil {
				return parsed
			}
		}
	}
	return fallbackRecommendations(decision, td, tm)
}

func recommendationsPrompt(req models.Request, td, tm models.RouteScore, decision string) string {
	return fmt.Sprintf(
		"Generate 3-5 strategic recommendations for %s (decision: %s, transdermal score %.1f/9, transmucosal score %.1f/9), "+
			"covering formulation priorities, market expansion, risk mitigation, patent/regulatory strategy, and investment priorities.\n\n"+
			"Return ONLY valid JSON with keys: summary, data (array of {recommendation, rationale, timeline, owner}).",
		req.DrugName, decision, td.Total, tm.Total,
	)
}

func fallbackRecommendations(decision string, td, tm models.RouteScore) map[string]any {
	best := math.Max(td.Total, tm.Total)
	route := td.Route
	if tm.Total > td.Total {
		route = tm.Route
	}

	var recs []map[string]any
	switch decision {
	case "GO":
		recs = append(recs,
			map[string]any{
				"recommendation": fmt.Sprintf("Prioritize development of %s delivery system", route),
				"rationale":      fmt.Sprintf("High suitability score (%s/9) indicates strong technical feasibility", scoreString(best)),
				"timeline":       "12-18 months",
				"owner":          "R&D",
			},
			map[string]any{
				"recommendation": "Conduct market validation studies",
				"rationale":      "Confirm market demand and pricing assumptions before full-scale development",
				"timeline":       "6-9 months",
				"owner":          "Commercial",
			},
		)
	case "CONDITIONAL":
		recs = append(recs, map[string]any{
			"recommendation": "Address formulation challenges through advanced technologies",
			"rationale":      fmt.Sprintf("Moderate score (%s/9) requires formulation enhancement", scoreString(best)),
			"timeline":       "12-24 months",
			"owner":          "R&D",
		})
	default:
		recs = append(recs, map[string]any{
			"recommendation": "Explore alternative delivery routes",
			"rationale":      fmt.Sprintf("Current route shows limited feasibility (score: %s/9)", scoreString(best)),
			"timeline":       "6-12 months",
			"owner":          "R&D",
		})
	}

	recs = append(recs, map[string]any{
		"recommendation": "Monitor competitive landscape and patent expirations",
		"rationale":      "Stay informed of market dynamics and generic entry timing",
		"timeline":       "Ongoing",
		"owner":          "Strategic Planning",
	})

	focus := "advancing development"
	if decision != "GO" {
		focus = "addressing limitations"
	}
	return map[string]any{
		"summary": fmt.Sprintf("Key recommendations focus on %s and managing commercial risks.", focus),
		"data":    recs,
	}
}

// dataCoverageScorecard implements spec §4.9's completeness formula: each
// category contributes up to 40 points for a substantial summary (100+
// characters, 20 for any summary at all) plus up to 60 for rich structured
// data (3+ keys, 30 for 1-2), averaged across every Phase-1 category and
// banded into a qualitative coverage level.
func dataCoverageScorecard(phase1 []models.CategoryResult) map[string]any {
	data := make([]map[string]any, 0, len(phase1))
	var totalCompletion int
	for _, r := range phase1 {
		completion := categoryCompletion(r)
		totalCompletion += completion
		data = append(data, map[string]any{
			"category":            r.CategoryName,
			"completion_percent":  fmt.Sprintf("%d%%", completion),
			"notes":               coverageNotes(completion),
		})
	}

	avg := 0.0
	if len(phase1) > 0 {
		avg = float64(totalCompletion) / float64(len(phase1))
	}

	return map[string]any{
		"summary": fmt.Sprintf(
			"The data coverage is %s across %d categories, with an average completion of %.0f%%.",
			coverageBand(avg), len(phase1), avg,
		),
		"data": data,
	}
}

func categoryCompletion(r models.CategoryResult) int {
	score := 0
	switch {
	case len(r.Summary) > 100:
		score += 40
	case r.Summary != "":
		score += 20
	}
	switch {
	case r.StructuredDataKeys >= 3:
		score += 60
	case r.StructuredDataKeys >= 1:
		score += 30
	}
	return min(score, 100)
}

func coverageBand(avg float64) string {
	switch {
	case avg >= 85:
		return "comprehensive"
	case avg >= 70:
		return "good"
	case avg >= 50:
		return "partial"
	default:
		return "limited"
	}
}

func coverageNotes(completion int) string {
	switch {
	case completion >= 90:
		return "Comprehensive data with detailed insights."
	case completion >= 70:
		return "Good coverage with most key data points available."
	case completion >= 50:
		return "Partial coverage - additional data could enhance analysis."
	default:
		return "Limited data available - consider additional research."
	}
}

// suitabilityMatrix builds spec §4.9's combined Phase-2 scoring section for
// both delivery routes.
func suitabilityMatrix(td, tm models.RouteScore) map[string]any {
	return map[string]any{
		"summary": fmt.Sprintf(
			"The quantitative analysis shows that both transdermal and transmucosal routes have been evaluated. "+
				"Transmucosal delivery scores %s/9 while transdermal scores %s/9.",
			scoreString(tm.Total), scoreString(td.Total),
		),
		"corrected_parameter_based_scoring": parameterScoring(td, tm),
		"weighted_scoring_assessment": map[string]any{
			"td_weighted_score": weightedScoreBreakdown(td),
			"tm_weighted_score": weightedScoreBreakdown(tm),
		},
		"delivery_route_feasibility_assessment": []map[string]any{
			feasibilityAssessment("Transdermal (TD)", td),
			feasibilityAssessment("Transmucosal (TM)", tm),
		},
		"final_weighted_scores": map[string]any{
			"transdermal_td":  fmt.Sprintf("%s (%.2f%%)", scoreString(td.Total), td.Total/9*100),
			"transmucosal_tm": fmt.Sprintf("%s (%.2f%%)", scoreString(tm.Total), tm.Total/9*100),
		},
		"strategic_decision_matrix": strategicDecisionMatrix(td, tm),
	}
}

func parameterScoring(td, tm models.RouteScore) []map[string]any {
	tmByParam := make(map[models.Parameter]models.Phase2ParameterResult, len(tm.Parameters))
	for _, p := range tm.Parameters {
		tmByParam[p.Parameter] = p
	}

	rows := make([]map[string]any, 0, len(td.Parameters))
	for _, tdParam := range td.Parameters {
		tmParam := tmByParam[tdParam.Parameter]
		rows = append(rows, map[string]any{
			"parameter":    tdParam.Parameter,
			"value":        formatParamValue(tdParam),
			"td_score":     scoreValue(tdParam.Score),
			"td_rationale": tdParam.Rationale,
			"tm_score":     scoreValue(tmParam.Score),
			"tm_rationale": tmParam.Rationale,
		})
	}
	return rows
}

func formatParamValue(p models.Phase2ParameterResult) string {
	if p.ExtractedValue == nil {
		return "Not available"
	}
	if p.Unit != "" {
		return fmt.Sprintf("%v %s", *p.ExtractedValue, p.Unit)
	}
	return fmt.Sprintf("%v", *p.ExtractedValue)
}

func scoreValue(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}

func weightedScoreBreakdown(route models.RouteScore) map[string]any {
	breakdown := make(map[string]any, len(route.Parameters)+1)
	for _, p := range route.Parameters {
		weight := models.ParameterWeights[p.Parameter]
		key := strings.ToLower(strings.ReplaceAll(string(p.Parameter), " ", "_"))
		breakdown[key] = fmt.Sprintf("%d × %.2f = %.1f", scoreValue(p.Score), weight, p.WeightedScore)
	}
	breakdown["total_score"] = scoreString(route.Total)
	return breakdown
}

func feasibilityAssessment(label string, route models.RouteScore) map[string]any {
	return map[string]any{
		"route":               label,
		"total_score":         scoreString(route.Total),
		"max_possible":        "9",
		"percentage":          fmt.Sprintf("%.2f%%", route.Total/9*100),
		"decision_category":   route.DecisionCategory,
		"verdict":             route.Verdict,
		"development_priority": route.InvestmentPriority,
	}
}

func strategicDecisionMatrix(td, tm models.RouteScore) map[string]any {
	return map[string]any{
		"go_no_go_verdicts": map[string]any{
			"transdermal_route":  fmt.Sprintf("%s - %s", td.Verdict, verdictRationale(td)),
			"transmucosal_route": fmt.Sprintf("%s - %s", tm.Verdict, verdictRationale(tm)),
		},
		"risk_assessment": map[string]any{
			"high_risk_factors": map[string]any{
				"td": riskFactors(td.Parameters),
				"tm": riskFactors(tm.Parameters),
			},
			"mitigation_opportunities": map[string]any{
				"td": "Advanced penetration enhancers and formulation technologies.",
				"tm": "Permeation enhancers and novel delivery systems.",
			},
			"success_probability": map[string]any{
				"td_route": fmt.Sprintf("%s - %s risk", td.SuccessProbability, td.RiskLevel),
				"tm_route": fmt.Sprintf("%s - %s risk", tm.SuccessProbability, tm.RiskLevel),
			},
		},
	}
}

// verdictRationale explains a route's verdict, naming the limiting
// parameters when the route falls below the Conditional-Go threshold.
func verdictRationale(route models.RouteScore) string {
	switch {
	case route.Total >= 7.0:
		return "Favorable physicochemical properties support development"
	case route.Total >= 5.0:
		return "Moderate suitability with formulation enhancement required"
	}
	var limiting []string
	for _, p := range route.Parameters {
		if s := scoreValue(p.Score); s < 5 {
			limiting = append(limiting, string(p.Parameter))
		}
		if len(limiting) == 2 {
			break
		}
	}
	if len(limiting) > 0 {
		return "Limited by " + strings.Join(limiting, ", ") + " constraints"
	}
	return "Physicochemical limitations present development challenges"
}

// riskFactors names parameters scoring below 5 as factors requiring
// mitigation.
func riskFactors(params []models.Phase2ParameterResult) string {
	var lowScoring []string
	for _, p := range params {
		if s := scoreValue(p.Score); s < 5 {
			lowScoring = append(lowScoring, string(p.Parameter))
		}
	}
	if len(lowScoring) > 0 {
		return "Challenges with " + strings.Join(lowScoring, ", ") + " require mitigation strategies"
	}
	return "No significant high-risk factors identified"
}

// bestOf picks the higher-ranked of two High/Medium/Low labels (High >
// Medium > Low), used to fold two per-route labels (investment priority,
// risk level) into one request-level value. For investment priority that is
// the more favorable label; for risk level it is the higher risk.
func bestOf(a, b string) string {
	rank := map[string]int{"High": 3, "Medium": 2, "Low": 1}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

func scoreString(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
