package config

import (
	"fmt"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Validate checks the reference-data invariants from spec §6: the category
// dependency graph is acyclic, every enabled Phase-2 category's declared
// dependencies exist, and scoring_ranges cover the real line for each
// (parameter, delivery_method) pair.
func (c *Config) Validate() error {
	if err := c.validateDependencyGraph(); err != nil {
		return err
	}
	if err := c.validateScoringCoverage(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDependencyGraph() error {
	adj := make(map[string][]string)
	for _, dep := range c.Pipeline.Dependencies {
		if _, ok := c.Pipeline.Categories[dep.Dependent]; !ok {
			return &ValidationError{Component: "category_dependency", ID: dep.Dependent, Err: ErrCategoryNotFound}
		}
		if _, ok := c.Pipeline.Categories[dep.Required]; !ok {
			return &ValidationError{Component: "category_dependency", ID: dep.Required, Err: ErrCategoryNotFound}
		}
		adj[dep.Dependent] = append(adj[dep.Dependent], dep.Required)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(node string) error
	visit = func(node string) error {
		color[node] = gray
		for _, next := range adj[node] {
			switch color[next] {
			case gray:
				return fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, node, next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[node] = black
		return nil
	}
	for id := range c.Pipeline.Categories {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateScoringCoverage requires each (parameter, delivery_method) pair to
// either have a covering set of ranges or an explicit out-of-range bucket;
// the scorer itself falls back to "score=0, is_exclusion=true" for anything
// unmatched, so this check only flags a pair with zero rows at all, which
// almost certainly indicates a missing rubric file.
func (c *Config) validateScoringCoverage() error {
	seen := make(map[models.Parameter]map[models.DeliveryMethod]bool)
	for _, r := range c.Scoring.Ranges {
		if seen[r.Parameter] == nil {
			seen[r.Parameter] = make(map[models.DeliveryMethod]bool)
		}
		seen[r.Parameter][r.DeliveryMethod] = true
	}
	routes := []models.DeliveryMethod{models.DeliveryTransdermal, models.DeliveryTransmucosal}
	for param := range models.ParameterWeights {
		for _, route := range routes {
			if !seen[param][route] {
				return &ValidationError{
					Component: "scoring_ranges",
					ID:        string(param) + "/" + string(route),
					Err:       fmt.Errorf("no rubric rows configured"),
				}
			}
		}
	}
	return nil
}
