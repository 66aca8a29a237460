// Package config loads and validates the pipeline engine's configuration:
// provider credentials, per-category pipeline rules, scoring rubric, rate
// limiting, and retention policy. YAML documents are merged with
// dario.cat/mergo, environment-expanded, and loaded once into an immutable
// *Config passed explicitly through constructors.
package config

import (
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Config is the umbrella object returned by Initialize and threaded through
// every constructor in the engine. No package-level globals (Design Notes).
type Config struct {
	configDir string

	Database  DatabaseConfig
	Providers ProviderRegistry
	Pipeline  PipelineConfig
	Scoring   ScoringConfig
	RateLimit RateLimitConfig
	Retention RetentionConfig
	HTTP      HTTPConfig

	version int // monotone version for cache invalidation (§5)
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// Version returns the monotone config version. Callers holding a
// process-local cache re-read when this no longer matches.
func (c *Config) Version() int { return c.version }

// DatabaseConfig mirrors pkg/database.Config fields needed at the config
// layer (the rest -- pool sizing -- lives in pkg/database itself).
type DatabaseConfig struct {
	DSN string
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Port    string
	GinMode string
	APIKeys map[string]APIKeyScope
}

// APIKeyScope is the set of operations a static API key may perform.
type APIKeyScope struct {
	CanSubmit bool
	CanRead   bool
	CanCancel bool
}

// ProviderCredential holds one provider's connection details.
type ProviderCredential struct {
	Name            string
	Kind            models.ProviderKind
	BaseURL         string
	Model           string
	APIKeyEnv       string
	DefaultTemp     float64
	MaxTemp         float64
	MinTemp         float64
	SupportsTemp    bool
	MaxTokens       int
	CostPerInputTok float64
	CostPerOutTok   float64
	Timeout         time.Duration
	MaxRetries      int
}

// ProviderRegistry is the set of configured LLM/search providers.
type ProviderRegistry struct {
	Providers map[string]ProviderCredential
	// SearchProvider is the provider name used for live-search fallbacks.
	SearchProvider string
}

// PipelineConfig holds the per-category reference data from spec §3/§4.7.
type PipelineConfig struct {
	Categories      map[string]*models.PharmaceuticalCategory
	Dependencies    []models.CategoryDependency
	P1MaxParallel   int
	StageDeadline   time.Duration
	CategoryRetries int
}

// ScoringRange is one row of the scoring_ranges reference table (spec §4.8).
type ScoringRange struct {
	Parameter      models.Parameter
	DeliveryMethod models.DeliveryMethod
	Min            float64
	Max            float64
	Score          int
	IsExclusion    bool
	RangeText      string
}

// ScoringConfig holds the rubric and mean stage durations used for
// estimated-completion math (spec §4.10).
type ScoringConfig struct {
	Ranges             []ScoringRange
	MeanStageDurations map[models.Stage]time.Duration
}

// RateLimitConfig configures both rate-limiter backends (spec §5).
type RateLimitConfig struct {
	MaxRPM     int
	WindowSecs int
	RedisAddr  string
}

// RetentionConfig mirrors the policy table in spec §4.12.
type RetentionConfig struct {
	AuditYears              int
	RequestYears            int
	CategoryResultYears     int
	SourceConflictYears     int
	ProcessTrackingYears    int
	FailedRequestDays       int
	FailedRequestMinRetries int
	CronSpec                string // robfig/cron expression for the sweep
}
