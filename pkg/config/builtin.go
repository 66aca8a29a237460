package config

import (
	"math"
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// builtinCategories are the reference Phase-1/Phase-2 categories shipped as
// sane defaults, overridable by pipeline.yaml. Eight Phase-1 categories
// matches spec §4.7's P1_MAX = min(N_categories, 8) exactly at capacity.
func builtinCategories() map[string]*models.PharmaceuticalCategory {
	allStages := models.StageToggles{Collect: true, Verify: true, Merge: true, Summarize: true}
	standard := models.SummaryStyle{Name: "standard", Length: models.LengthStandard, TargetWordCount: 250}

	p1 := []struct {
		id, name string
		order    int
	}{
		{"market_overview", "Market Overview", 1},
		{"clinical_trials_safety", "Clinical Trials & Safety", 2},
		{"pharmacokinetics", "Pharmacokinetics", 3},
		{"regulatory_status", "Regulatory Status", 4},
		{"competitive_landscape", "Competitive Landscape", 5},
		{"manufacturing_formulation", "Manufacturing & Formulation", 6},
		{"patent_intellectual_property", "Patent & Intellectual Property", 7},
		{"commercial_potential", "Commercial Potential", 8},
	}

	out := make(map[string]*models.PharmaceuticalCategory, len(p1)+5)
	for _, c := range p1 {
		out[c.id] = &models.PharmaceuticalCategory{
			ID: c.id, Name: c.name, Phase: models.Phase1, DisplayOrder: c.order, IsActive: true,
			PromptTemplate:             "Summarize " + c.name + " for {{.DrugName}} via {{.DeliveryMethod}}.",
			VerificationCriteria:       []string{"non_empty_sections", "numeric_value_present"},
			ConflictResolutionStrategy: "authority_then_length",
			StageToggles:               allStages,
			SummaryStyle:               standard,
		}
	}

	p2 := []struct {
		id, name string
		order    int
	}{
		{"scoring_matrix", "Suitability Scoring Matrix", 1},
		{"risk_assessment", "Risk Assessment", 2},
		{"investment_analysis", "Investment Analysis", 3},
		{"strategic_recommendations", "Strategic Recommendations", 4},
		{"executive_summary", "Executive Summary", 5},
	}
	for _, c := range p2 {
		out[c.id] = &models.PharmaceuticalCategory{
			ID: c.id, Name: c.name, Phase: models.Phase2, DisplayOrder: c.order, IsActive: true,
			PromptTemplate: "Produce " + c.name + " for {{.DrugName}} from the Phase 1 findings.",
			SummaryStyle:   standard,
		}
	}
	return out
}

func builtinDependencies() []models.CategoryDependency {
	return []models.CategoryDependency{
		{Dependent: "risk_assessment", Required: "scoring_matrix"},
		{Dependent: "investment_analysis", Required: "scoring_matrix"},
		{Dependent: "strategic_recommendations", Required: "scoring_matrix"},
		{Dependent: "strategic_recommendations", Required: "risk_assessment"},
		{Dependent: "executive_summary", Required: "scoring_matrix"},
		{Dependent: "executive_summary", Required: "risk_assessment"},
		{Dependent: "executive_summary", Required: "investment_analysis"},
		{Dependent: "executive_summary", Required: "strategic_recommendations"},
	}
}

// builtinRanges is a representative rubric covering the full real line for
// each (parameter, delivery_method) pair, so no input value falls through
// ungraded (spec §6). Dose, MolecularWeight and MeltingPoint have an explicit
// exclusion bucket at both tails; LogP has one at the upper tail only, and
// its lower tail (<1) scores 3.
func builtinRanges() []ScoringRange {
	inf := math.Inf(1)
	ninf := math.Inf(-1)

	type tier struct {
		min, max float64
		score    int
		text     string
	}
	dose := []tier{
		{ninf, 0, 0, "Out of Range"},
		{0, 10, 9, "<=10 mg/day"},
		{10, 50, 6, "10-50 mg/day"},
		{50, 150, 3, "50-150 mg/day"},
		{150, inf, 0, "Out of Range"},
	}
	mw := []tier{
		{ninf, 0, 0, "Out of Range"},
		{0, 300, 9, "<=300 Da"},
		{300, 500, 6, "300-500 Da"},
		{500, 800, 3, "500-800 Da"},
		{800, inf, 0, "Out of Range"},
	}
	mp := []tier{
		{ninf, 0, 0, "Out of Range"},
		{0, 150, 9, "<=150 C"},
		{150, 200, 6, "150-200 C"},
		{200, 250, 3, "200-250 C"},
		{250, inf, 0, "Out of Range"},
	}
	logp := []tier{
		{ninf, 1, 3, "<1"},
		{1, 3, 9, "1-3"},
		{3, 5, 6, "3-5"},
		{5, inf, 0, "Out of Range"},
	}

	build := func(param models.Parameter, route models.DeliveryMethod, tiers []tier) []ScoringRange {
		rows := make([]ScoringRange, 0, len(tiers))
		for _, t := range tiers {
			rows = append(rows, ScoringRange{
				Parameter: param, DeliveryMethod: route,
				Min: t.min, Max: t.max, Score: t.score,
				IsExclusion: t.score == 0 && t.text == "Out of Range",
				RangeText:   t.text,
			})
		}
		return rows
	}

	var ranges []ScoringRange
	for _, route := range []models.DeliveryMethod{models.DeliveryTransdermal, models.DeliveryTransmucosal} {
		ranges = append(ranges, build(models.ParamDose, route, dose)...)
		ranges = append(ranges, build(models.ParamMolecularWeight, route, mw)...)
		ranges = append(ranges, build(models.ParamMeltingPoint, route, mp)...)
		ranges = append(ranges, build(models.ParamLogP, route, logp)...)
	}
	return ranges
}

func builtinMeanStageDurations() map[models.Stage]time.Duration {
	return map[models.Stage]time.Duration{
		models.StageCollect:   2 * time.Minute,
		models.StageVerify:    1 * time.Minute,
		models.StageMerge:     90 * time.Second,
		models.StageSummarize: 45 * time.Second,
	}
}

func builtinProviders() ProviderRegistry {
	return ProviderRegistry{
		SearchProvider: "tavily_search",
		Providers: map[string]ProviderCredential{
			"anthropic_claude": {
				Name: "anthropic_claude", Kind: models.ProviderLicensedAI,
				Model: "claude-opus-4", APIKeyEnv: "ANTHROPIC_API_KEY",
				DefaultTemp: 0.2, MinTemp: 0, MaxTemp: 1, SupportsTemp: true,
				MaxTokens: 4096, CostPerInputTok: 0.000003, CostPerOutTok: 0.000015,
				Timeout: 60 * time.Second, MaxRetries: 3,
			},
			"bedrock_titan": {
				Name: "bedrock_titan", Kind: models.ProviderLicensedAI,
				Model: "amazon.titan-text-premier-v1:0", APIKeyEnv: "",
				DefaultTemp: 0.2, MinTemp: 0, MaxTemp: 1, SupportsTemp: true,
				MaxTokens: 3072, CostPerInputTok: 0.0000005, CostPerOutTok: 0.0000015,
				Timeout: 60 * time.Second, MaxRetries: 3,
			},
			"openai_gpt": {
				Name: "openai_gpt", Kind: models.ProviderCompanyOwned,
				Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY",
				DefaultTemp: 0.2, MinTemp: 0, MaxTemp: 2, SupportsTemp: true,
				MaxTokens: 4096, CostPerInputTok: 0.0000025, CostPerOutTok: 0.00001,
				Timeout: 60 * time.Second, MaxRetries: 3,
			},
			"tavily_search": {
				Name: "tavily_search", Kind: models.ProviderNews,
				BaseURL: "https://api.tavily.com", APIKeyEnv: "TAVILY_API_KEY",
				SupportsTemp: false, MaxTokens: 0,
				CostPerInputTok: 0, CostPerOutTok: 0.001,
				Timeout: 30 * time.Second, MaxRetries: 2,
			},
		},
	}
}

// Builtin returns the process's default configuration: used when no YAML
// config directory is supplied, and as the base that file-based overrides
// are merged onto.
func Builtin() *Config {
	return &Config{
		Providers: builtinProviders(),
		Pipeline: PipelineConfig{
			Categories:      builtinCategories(),
			Dependencies:    builtinDependencies(),
			P1MaxParallel:   8,
			StageDeadline:   5 * time.Minute,
			CategoryRetries: 1,
		},
		Scoring: ScoringConfig{
			Ranges:             builtinRanges(),
			MeanStageDurations: builtinMeanStageDurations(),
		},
		RateLimit: RateLimitConfig{MaxRPM: 120, WindowSecs: 60, RedisAddr: "localhost:6379"},
		Retention: RetentionConfig{
			AuditYears: 7, RequestYears: 3, CategoryResultYears: 2,
			SourceConflictYears: 7, ProcessTrackingYears: 3,
			FailedRequestDays: 90, FailedRequestMinRetries: 3,
			CronSpec: "0 3 * * *",
		},
		HTTP: HTTPConfig{Port: "8080", GinMode: "release"},
		version: 0,
	}
}
