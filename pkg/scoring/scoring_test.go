package scoring_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/scoring"
)

func rangesFixture() []scoring.Range {
	var out []scoring.Range
	tiers := []struct {
		min, max float64
		score    int
	}{
		{0, 10, 9}, {10, 50, 6}, {50, 1e9, 0},
	}
	for _, route := range []models.DeliveryMethod{models.DeliveryTransdermal, models.DeliveryTransmucosal} {
		for _, param := range []models.Parameter{models.ParamDose, models.ParamMolecularWeight, models.ParamMeltingPoint, models.ParamLogP} {
			for _, t := range tiers {
				out = append(out, scoring.Range{Parameter: param, DeliveryMethod: route, Min: t.min, Max: t.max, Score: t.score})
			}
		}
	}
	return out
}

type fakeExtractor struct {
	method models.ExtractionMethod
	value  float64
	ok     bool
}

func (f fakeExtractor) Method() models.ExtractionMethod { return f.method }
func (f fakeExtractor) Extract(context.Context, models.Request, models.Parameter, []models.CategoryResult) (float64, string, bool) {
	return f.value, "mg/day", f.ok
}

var _ = Describe("Scorer", func() {
	req := models.Request{ID: "req-1", DrugName: "Testadol", DeliveryMethod: models.DeliveryTransdermal}

	It("produces a Go verdict when every parameter lands in the top tier", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, rangesFixture(), nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Verdict).To(Equal(models.VerdictGo))
		Expect(route.Total).To(BeNumerically(">=", 7))
	})

	It("produces a No-Go verdict when extraction yields exclusion-range values", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 9999, ok: true}}, rangesFixture(), nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Verdict).To(Equal(models.VerdictNoGo))
		for _, p := range route.Parameters {
			Expect(p.WeightedScore).To(BeZero())
		}
	})

	It("falls back to ExtractNone when every waterfall step declines", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, ok: false}}, rangesFixture(), nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		for _, p := range route.Parameters {
			Expect(p.ExtractionMethod).To(Equal(models.ExtractNone))
			Expect(p.Score).To(BeNil())
		}
	})

	It("tries the next waterfall step when the first declines", func() {
		s := scoring.New([]scoring.Extractor{
			fakeExtractor{method: models.ExtractPhase1Summary, ok: false},
			fakeExtractor{method: models.ExtractDedicatedLLM, value: 5, ok: true},
		}, rangesFixture(), nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		for _, p := range route.Parameters {
			Expect(p.ExtractionMethod).To(Equal(models.ExtractDedicatedLLM))
		}
	})
})

var _ = DescribeTable("Verdict thresholds",
	func(total float64, expected models.Verdict) {
		Expect(scoring.Verdict(total)).To(Equal(expected))
	},
	Entry("at or above 7 is Go", 7.0, models.VerdictGo),
	Entry("between 5 and 7 is Conditional-Go", 6.0, models.VerdictConditionalGo),
	Entry("exactly 5 is Conditional-Go", 5.0, models.VerdictConditionalGo),
	Entry("below 5 is No-Go", 4.9, models.VerdictNoGo),
)

var _ = Describe("total-derived classifications", func() {
	// A single fixed-value extractor lets us drive route.Total to an exact
	// figure by choosing the rubric score.
	req := models.Request{ID: "req-1", DrugName: "Testadol", DeliveryMethod: models.DeliveryTransdermal}

	// Scoring every parameter identically makes total == score, since the
	// four parameter weights (0.40 + 0.30 + 0.20 + 0.10) sum to 1.0.
	buildScorerForTotal := func(score int) *scoring.Scorer {
		var ranges []scoring.Range
		for _, param := range []models.Parameter{models.ParamDose, models.ParamMolecularWeight, models.ParamMeltingPoint, models.ParamLogP} {
			ranges = append(ranges, scoring.Range{Parameter: param, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 1, Score: score})
		}
		return scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 0.5, ok: true}}, ranges, nil)
	}

	It("labels a total of 9 as Highly Suitable / High / High", func() {
		route := buildScorerForTotal(9).ScoreRequest(context.Background(), req, nil)
		Expect(route.Total).To(BeNumerically("==", 9))
		Expect(route.DecisionCategory).To(Equal("Highly Suitable"))
		Expect(route.InvestmentPriority).To(Equal("High"))
		Expect(route.SuccessProbability).To(Equal("High"))
		Expect(route.RiskLevel).To(Equal("Low"))
	})

	It("labels a mid total as Moderate / Low priority / Medium probability", func() {
		route := buildScorerForTotal(5).ScoreRequest(context.Background(), req, nil)
		Expect(route.DecisionCategory).To(Equal("Moderate"))
		Expect(route.InvestmentPriority).To(Equal("Low"))
		Expect(route.SuccessProbability).To(Equal("Medium"))
	})
})

var _ = Describe("rubric lookup", func() {
	req := models.Request{ID: "req-1", DrugName: "Testadol", DeliveryMethod: models.DeliveryTransdermal}

	It("reports the literal Out of Range text when no rubric row matches", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: -5, ok: true}}, nil, nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		for _, p := range route.Parameters {
			Expect(p.Rationale).To(Equal(fmt.Sprintf("Score 0 assigned based on %s value of -5 in range Out of Range", p.Parameter)))
		}
	})

	It("prefers the non-exclusion row on an overlapping boundary", func() {
		ranges := []scoring.Range{
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 9, IsExclusion: false, RangeText: "normal"},
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 0, IsExclusion: true, RangeText: "excluded"},
		}
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, ranges, nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Parameters[0].Rationale).To(Equal("Score 9 assigned based on Dose value of 5 in range normal"))
	})

	It("prefers the higher score among overlapping non-exclusion rows", func() {
		ranges := []scoring.Range{
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 3, RangeText: "low"},
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 7, RangeText: "high"},
		}
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, ranges, nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Parameters[0].Rationale).To(Equal("Score 7 assigned based on Dose value of 5 in range high"))
	})

	It("prefers the narrower range among equally-scored overlapping rows", func() {
		ranges := []scoring.Range{
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 5, RangeText: "wide"},
			{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 4, Max: 6, Score: 5, RangeText: "narrow"},
		}
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, ranges, nil)
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Parameters[0].Rationale).To(Equal("Score 5 assigned based on Dose value of 5 in range narrow"))
	})
})

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Name() string                 { return "fake_narrator" }
func (f fakeNarrator) Kind() models.ProviderKind     { return models.ProviderLicensedAI }
func (f fakeNarrator) Call(context.Context, providers.Query) (providers.Response, error) {
	return providers.Response{RawText: f.text}, f.err
}

var _ = Describe("parameter rationale generation", func() {
	req := models.Request{ID: "req-1", DrugName: "Testadol", DeliveryMethod: models.DeliveryTransdermal}
	ranges := []scoring.Range{
		{Parameter: models.ParamDose, DeliveryMethod: models.DeliveryTransdermal, Min: 0, Max: 10, Score: 9, RangeText: "normal"},
	}

	It("uses the narrator's text when the call succeeds", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, ranges, fakeNarrator{text: "narrated rationale"})
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Parameters[0].Rationale).To(Equal("narrated rationale"))
	})

	It("falls back to the deterministic template when the narrator fails", func() {
		s := scoring.New([]scoring.Extractor{fakeExtractor{method: models.ExtractPhase1Summary, value: 5, ok: true}}, ranges, fakeNarrator{err: assertErr})
		route := s.ScoreRequest(context.Background(), req, nil)
		Expect(route.Parameters[0].Rationale).To(Equal("Score 9 assigned based on Dose value of 5 in range normal"))
	})
})

var assertErr = fmt.Errorf("narrator unavailable")
