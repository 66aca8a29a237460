// Package validation implements the per-category verification stage (spec
// §4.2 "verify"): each configured VerificationCriteria check runs against a
// collected provider response, producing pass/fail plus a reason the merger
// and audit log can record.
package validation

import (
	"strings"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Result is one criterion's outcome for one provider response.
type Result struct {
	Criterion string
	Passed    bool
	Reason    string
}

// Checker runs a category's configured verification criteria.
type Checker struct {
	checks map[string]func(models.ProviderResponse) Result
}

// New builds a Checker with the built-in criteria registered under the
// names used in pkg/config's default PharmaceuticalCategory.VerificationCriteria.
func New() *Checker {
	c := &Checker{checks: make(map[string]func(models.ProviderResponse) Result)}
	c.Register("non_empty_sections", checkNonEmpty)
	c.Register("numeric_value_present", checkNumericPresent)
	c.Register("has_citation", checkHasCitation)
	return c
}

// Register adds or overrides a named criterion.
func (c *Checker) Register(name string, fn func(models.ProviderResponse) Result) {
	c.checks[name] = fn
}

// Verify runs every criterion named in criteria against resp. An unknown
// criterion name fails closed rather than being silently skipped, since a
// misconfigured category should surface at verify time, not merge time.
func (c *Checker) Verify(resp models.ProviderResponse, criteria []string) []Result {
	results := make([]Result, 0, len(criteria))
	for _, name := range criteria {
		fn, ok := c.checks[name]
		if !ok {
			results = append(results, Result{Criterion: name, Passed: false, Reason: "unknown criterion"})
			continue
		}
		results = append(results, fn(resp))
	}
	return results
}

// AllPassed reports whether every result in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func checkNonEmpty(resp models.ProviderResponse) Result {
	if strings.TrimSpace(resp.RawText) == "" {
		return Result{Criterion: "non_empty_sections", Passed: false, Reason: "response text is empty"}
	}
	return Result{Criterion: "non_empty_sections", Passed: true}
}

func checkNumericPresent(resp models.ProviderResponse) Result {
	for _, r := range resp.RawText {
		if r >= '0' && r <= '9' {
			return Result{Criterion: "numeric_value_present", Passed: true}
		}
	}
	return Result{Criterion: "numeric_value_present", Passed: false, Reason: "no numeric value found in response"}
}

func checkHasCitation(resp models.ProviderResponse) Result {
	if len(resp.CitedURLs) == 0 {
		return Result{Criterion: "has_citation", Passed: false, Reason: "no cited sources"}
	}
	return Result{Criterion: "has_citation", Passed: true}
}
