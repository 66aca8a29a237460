// Package weighting implements the source authority hierarchy (spec §4.3):
// every provider response is assigned a fixed weight by provider kind, plus
// a length/citation-derived credibility score used as a tiebreaker
// during merge.
package weighting

import (
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// AuthorityWeights are the fixed 0-10 weights per spec §4.3.
var AuthorityWeights = map[models.ProviderKind]int{
	models.ProviderLicensedAI:   10,
	models.ProviderGovernment:   8,
	models.ProviderPeerReviewed: 6,
	models.ProviderIndustry:     4,
	models.ProviderCompanyOwned: 2,
	models.ProviderNews:         1,
	models.ProviderUnknown:      0,
}

// Weigher assigns authority weight and credibility to a raw provider
// response before it is handed to the merger.
type Weigher struct {
	now func() time.Time
}

// New builds a Weigher. now defaults to time.Now.
func New(now func() time.Time) *Weigher {
	if now == nil {
		now = time.Now
	}
	return &Weigher{now: now}
}

// Weight returns the fixed authority weight for a provider kind, 0 for any
// kind not in the hierarchy (spec §4.3's "unknown" default).
func (w *Weigher) Weight(kind models.ProviderKind) int {
	weight, ok := AuthorityWeights[kind]
	if !ok {
		return AuthorityWeights[models.ProviderUnknown]
	}
	return weight
}

// Credibility scores a response 0-1 from its length (completeness proxy)
// and citation count, both capped so a single very long or very
// citation-heavy response can't dominate the merge on volume alone.
func (w *Weigher) Credibility(resp models.ProviderResponse) float64 {
	lengthScore := clamp(float64(len(resp.RawText))/2000, 0, 0.6)
	citationScore := clamp(float64(len(resp.CitedURLs))/5, 0, 0.4)
	return lengthScore + citationScore
}

// Annotate fills in AuthorityWeight and Credibility on resp in place and
// returns it, for use in a pipeline.Map-style call chain.
func (w *Weigher) Annotate(resp models.ProviderResponse) models.ProviderResponse {
	resp.AuthorityWeight = w.Weight(resp.Kind)
	resp.Credibility = w.Credibility(resp)
	return resp
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
