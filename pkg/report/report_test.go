package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Narrate(context.Context, string) (string, error) {
	return f.text, f.err
}

func routeScore(route models.DeliveryMethod, total float64, verdict models.Verdict) models.RouteScore {
	score := 9
	return models.RouteScore{
		Route: route, Total: total, Verdict: verdict,
		DecisionCategory:   "Suitable",
		InvestmentPriority: "Medium",
		RiskLevel:          "Low",
		SuccessProbability: "Medium-High",
		Parameters: []models.Phase2ParameterResult{
			{Parameter: models.ParamLogP, Unit: "", WeightedScore: 1.5, Score: &score, Rationale: "fits the range"},
		},
	}
}

func structuredData(t *testing.T, out models.RequestFinalOutput) map[string]any {
	t.Helper()
	sd, ok := out.Document["structured_data"].(map[string]any)
	require.True(t, ok, "structured_data must be present")
	return sd
}

func TestComposer_Compose_UsesNarratorWhenAvailable(t *testing.T) {
	c := New(fakeNarrator{text: `{"decision":"GO","investment_priority":"High","risk_level":"Low","summary":"this drug looks promising"}`})
	req := models.Request{ID: "r1", DrugName: "aspirin"}
	phase1 := []models.CategoryResult{
		{CategoryID: "chem", CategoryName: "Chemistry", Status: models.CategoryCompleted, Summary: "stable compound"},
	}
	td := routeScore(models.DeliveryTransdermal, 8.5, models.VerdictGo)
	tm := routeScore(models.DeliveryTransmucosal, 4.0, models.VerdictNoGo)

	out := c.Compose(context.Background(), req, phase1, nil, td, tm)

	assert.Equal(t, "drug", out.Document["webhookType"])
	sd := structuredData(t, out)
	execSummary, ok := sd["executive_summary_and_decision"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "GO", execSummary["decision"])
	assert.True(t, out.GoDecision)
	assert.Equal(t, 8.5, out.TDScore)
	assert.Equal(t, 4.0, out.TMScore)
	assert.Equal(t, models.VerdictGo, out.TDVerdict)
	assert.Equal(t, "Medium", out.InvestmentPriority)
}

func TestComposer_Compose_NarratorErrorFallsBack(t *testing.T) {
	c := New(fakeNarrator{err: errors.New("down")})
	req := models.Request{ID: "r1", DrugName: "ibuprofen"}
	td := routeScore(models.DeliveryTransdermal, 3.0, models.VerdictNoGo)
	tm := routeScore(models.DeliveryTransmucosal, 2.0, models.VerdictNoGo)

	out := c.Compose(context.Background(), req, nil, nil, td, tm)

	sd := structuredData(t, out)
	execSummary, ok := sd["executive_summary_and_decision"].(map[string]any)
	require.True(t, ok)
	summary, ok := execSummary["summary"].(string)
	require.True(t, ok)
	assert.Contains(t, summary, "ibuprofen")
	assert.False(t, out.GoDecision)
}

func TestComposer_Compose_NilNarratorUsesFallback(t *testing.T) {
	c := New(nil)
	req := models.Request{ID: "r1", DrugName: "naproxen"}
	td := routeScore(models.DeliveryTransdermal, 9.0, models.VerdictGo)
	tm := models.RouteScore{}

	out := c.Compose(context.Background(), req, nil, nil, td, tm)

	sd := structuredData(t, out)
	execSummary := sd["executive_summary_and_decision"].(map[string]any)
	assert.Contains(t, execSummary["summary"].(string), "naproxen")
	assert.Equal(t, "GO", execSummary["decision"])

	recs, ok := sd["recommendations"].(map[string]any)
	require.True(t, ok)
	data, ok := recs["data"].([]map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data)

	matrix, ok := sd["suitability_matrix"].(map[string]any)
	require.True(t, ok)
	scores, ok := matrix["final_weighted_scores"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, scores["transdermal_td"], "9.0")
	assert.Contains(t, scores, "transmucosal_tm")
}

func TestDataCoverageScorecard(t *testing.T) {
	phase1 := []models.CategoryResult{
		{CategoryName: "Chemistry", Status: models.CategoryCompleted, Summary: string(make([]byte, 120)), StructuredDataKeys: 4},
		{CategoryName: "Regulatory", Status: models.CategoryCompleted, Summary: "short", StructuredDataKeys: 1},
		{CategoryName: "Market", Status: models.CategoryFailed},
		{CategoryName: "Patents", Status: models.CategorySkipped},
	}
	coverage := dataCoverageScorecard(phase1)
	data, ok := coverage["data"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, data, 4)
	assert.Equal(t, "100%", data[0]["completion_percent"])
	assert.Equal(t, "50%", data[1]["completion_percent"])
	assert.Equal(t, "0%", data[2]["completion_percent"])

	summary, ok := coverage["summary"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, summary)
}

func TestCategoryCompletion(t *testing.T) {
	cases := []struct {
		name     string
		result   models.CategoryResult
		expected int
	}{
		{"empty", models.CategoryResult{}, 0},
		{"short summary only", models.CategoryResult{Summary: "brief"}, 20},
		{"long summary only", models.CategoryResult{Summary: string(make([]byte, 150))}, 40},
		{"short summary, rich data", models.CategoryResult{Summary: "brief", StructuredDataKeys: 5}, 80},
		{"long summary, rich data", models.CategoryResult{Summary: string(make([]byte, 150)), StructuredDataKeys: 5}, 100},
		{"long summary, light data", models.CategoryResult{Summary: string(make([]byte, 150)), StructuredDataKeys: 1}, 70},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, categoryCompletion(c.result))
		})
	}
}

func TestBestOf(t *testing.T) {
	assert.Equal(t, "High", bestOf("High", "Low"))
	assert.Equal(t, "Medium", bestOf("Low", "Medium"))
	assert.Equal(t, "Low", bestOf("Low", "Low"))
}

func TestFallbackRecommendations(t *testing.T) {
	td := routeScore(models.DeliveryTransdermal, 9.0, models.VerdictGo)
	tm := routeScore(models.DeliveryTransmucosal, 2.0, models.VerdictNoGo)
	recs := fallbackRecommendations("GO", td, tm)
	data := recs["data"].([]map[string]any)
	assert.Contains(t, data[0]["recommendation"], "Prioritize development")

	recsConditional := fallbackRecommendations("CONDITIONAL", td, tm)
	dataConditional := recsConditional["data"].([]map[string]any)
	assert.Contains(t, dataConditional[0]["recommendation"], "formulation challenges")

	recsNoGo := fallbackRecommendations("NO-GO", td, tm)
	dataNoGo := recsNoGo["data"].([]map[string]any)
	assert.Contains(t, dataNoGo[0]["recommendation"], "alternative delivery routes")

	last := dataNoGo[len(dataNoGo)-1]
	assert.Contains(t, last["recommendation"], "Monitor competitive landscape")
	assert.Equal(t, "Strategic Planning", last["owner"])
	assert.Equal(t, "Ongoing", last["timeline"])
}

func TestVerdictRationale(t *testing.T) {
	highScore := 8
	lowScore := 2
	high := models.RouteScore{Total: 8.0}
	assert.Equal(t, "Favorable physicochemical properties support development", verdictRationale(high))

	mid := models.RouteScore{Total: 6.0}
	assert.Equal(t, "Moderate suitability with formulation enhancement required", verdictRationale(mid))

	low := models.RouteScore{Total: 3.0, Parameters: []models.Phase2ParameterResult{
		{Parameter: models.ParamDose, Score: &lowScore},
		{Parameter: models.ParamLogP, Score: &highScore},
	}}
	assert.Contains(t, verdictRationale(low), "Dose")
}

func TestRiskFactors(t *testing.T) {
	lowScore := 3
	highScore := 8
	params := []models.Phase2ParameterResult{
		{Parameter: models.ParamDose, Score: &lowScore},
		{Parameter: models.ParamLogP, Score: &highScore},
	}
	assert.Contains(t, riskFactors(params), "Dose")
	assert.NotContains(t, riskFactors(params), "LogP")

	assert.Equal(t, "No significant high-risk factors identified", riskFactors([]models.Phase2ParameterResult{
		{Parameter: models.ParamDose, Score: &highScore},
	}))
}
