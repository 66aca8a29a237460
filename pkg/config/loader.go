package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// pipelineYAML is the on-disk shape of pipeline.yaml: per-category overrides
// keyed by category id, plus dependency edges and scheduling knobs.
type pipelineYAML struct {
	Categories      map[string]*models.PharmaceuticalCategory `yaml:"categories"`
	Dependencies    []models.CategoryDependency                `yaml:"dependencies"`
	P1MaxParallel   int                                        `yaml:"p1_max_parallel"`
	StageDeadline   string                                     `yaml:"stage_deadline"`
	CategoryRetries int                                        `yaml:"category_retries"`
}

type providerYAML struct {
	Kind            string  `yaml:"kind"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	DefaultTemp     float64 `yaml:"default_temperature"`
	MinTemp         float64 `yaml:"min_temperature"`
	MaxTemp         float64 `yaml:"max_temperature"`
	SupportsTemp    bool    `yaml:"supports_temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	CostPerInputTok float64 `yaml:"cost_per_input_token"`
	CostPerOutTok   float64 `yaml:"cost_per_output_token"`
	Timeout         string  `yaml:"timeout"`
	MaxRetries      int     `yaml:"max_retries"`
}

type providersYAML struct {
	SearchProvider string                  `yaml:"search_provider"`
	Providers      map[string]providerYAML `yaml:"providers"`
}

type scoringRangeYAML struct {
	Parameter      string  `yaml:"parameter"`
	DeliveryMethod string  `yaml:"delivery_method"`
	Min            float64 `yaml:"min"`
	Max            float64 `yaml:"max"`
	Score          int     `yaml:"score"`
	IsExclusion    bool    `yaml:"is_exclusion"`
	RangeText      string  `yaml:"range_text"`
}

type scoringYAML struct {
	Ranges             []scoringRangeYAML `yaml:"ranges"`
	MeanStageDurations map[string]string  `yaml:"mean_stage_durations"`
}

type rateLimitYAML struct {
	MaxRPM     int    `yaml:"max_rpm"`
	WindowSecs int    `yaml:"window_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
}

type retentionYAML struct {
	AuditYears              int    `yaml:"audit_years"`
	RequestYears            int    `yaml:"request_years"`
	CategoryResultYears     int    `yaml:"category_result_years"`
	SourceConflictYears     int    `yaml:"source_conflict_years"`
	ProcessTrackingYears    int    `yaml:"process_tracking_years"`
	FailedRequestDays       int    `yaml:"failed_request_days"`
	FailedRequestMinRetries int    `yaml:"failed_request_min_retries"`
	CronSpec                string `yaml:"cron_spec"`
}

type httpYAML struct {
	Port    string                       `yaml:"port"`
	GinMode string                       `yaml:"gin_mode"`
	APIKeys map[string]yamlAPIKeyScope   `yaml:"api_keys"`
}

type yamlAPIKeyScope struct {
	CanSubmit bool `yaml:"can_submit"`
	CanRead   bool `yaml:"can_read"`
	CanCancel bool `yaml:"can_cancel"`
}

type databaseYAML struct {
	DSN string `yaml:"dsn"`
}

// Initialize loads configuration from YAML files under configDir, merges it
// onto the built-in defaults (user values win), expands ${VAR} references
// against the process environment -- preloaded from a .env file in configDir
// if present -- and validates the result. Any individual YAML file may be
// absent; Builtin() alone is a usable configuration.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "initializing configuration")

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !os.IsNotExist(err) {
		log.WarnContext(ctx, "failed to load .env", "error", err)
	}

	cfg := Builtin()
	cfg.configDir = configDir

	loader := &configLoader{configDir: configDir}

	var pl pipelineYAML
	if err := loader.loadYAML("pipeline.yaml", &pl); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading pipeline.yaml: %w", err)
	} else if err == nil {
		if err := applyPipeline(cfg, pl); err != nil {
			return nil, fmt.Errorf("applying pipeline.yaml: %w", err)
		}
	}

	var pr providersYAML
	if err := loader.loadYAML("providers.yaml", &pr); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading providers.yaml: %w", err)
	} else if err == nil {
		if err := applyProviders(cfg, pr); err != nil {
			return nil, fmt.Errorf("applying providers.yaml: %w", err)
		}
	}

	var sc scoringYAML
	if err := loader.loadYAML("scoring.yaml", &sc); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading scoring.yaml: %w", err)
	} else if err == nil {
		if err := applyScoring(cfg, sc); err != nil {
			return nil, fmt.Errorf("applying scoring.yaml: %w", err)
		}
	}

	var rl rateLimitYAML
	if err := loader.loadYAML("ratelimit.yaml", &rl); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading ratelimit.yaml: %w", err)
	} else if err == nil {
		if err := mergo.Merge(&cfg.RateLimit, RateLimitConfig(rl), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging ratelimit.yaml: %w", err)
		}
	}

	var rt retentionYAML
	if err := loader.loadYAML("retention.yaml", &rt); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading retention.yaml: %w", err)
	} else if err == nil {
		if err := mergo.Merge(&cfg.Retention, RetentionConfig(rt), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging retention.yaml: %w", err)
		}
	}

	var h httpYAML
	if err := loader.loadYAML("http.yaml", &h); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading http.yaml: %w", err)
	} else if err == nil {
		applyHTTP(cfg, h)
	}

	var db databaseYAML
	if err := loader.loadYAML("database.yaml", &db); err != nil && err != ErrConfigNotFound {
		return nil, fmt.Errorf("loading database.yaml: %w", err)
	} else if err == nil && db.DSN != "" {
		cfg.Database.DSN = db.DSN
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}

	cfg.version++

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.InfoContext(ctx, "configuration initialized",
		"categories", len(cfg.Pipeline.Categories),
		"providers", len(cfg.Providers.Providers),
		"scoring_ranges", len(cfg.Scoring.Ranges),
		"version", cfg.version)
	return cfg, nil
}

type configLoader struct {
	configDir string
}

// loadYAML returns ErrConfigNotFound (not wrapped) when the file is absent,
// so callers can treat a missing override file as "use builtins" rather than
// a hard failure.
func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func applyPipeline(cfg *Config, pl pipelineYAML) error {
	for id, cat := range pl.Categories {
		cat.ID = id
		if existing, ok := cfg.Pipeline.Categories[id]; ok {
			if err := mergo.Merge(existing, cat, mergo.WithOverride); err != nil {
				return err
			}
		} else {
			cfg.Pipeline.Categories[id] = cat
		}
	}
	if len(pl.Dependencies) > 0 {
		cfg.Pipeline.Dependencies = pl.Dependencies
	}
	if pl.P1MaxParallel > 0 {
		cfg.Pipeline.P1MaxParallel = pl.P1MaxParallel
	}
	if pl.StageDeadline != "" {
		d, err := time.ParseDuration(pl.StageDeadline)
		if err != nil {
			return fmt.Errorf("stage_deadline: %w", err)
		}
		cfg.Pipeline.StageDeadline = d
	}
	if pl.CategoryRetries > 0 {
		cfg.Pipeline.CategoryRetries = pl.CategoryRetries
	}
	return nil
}

func applyProviders(cfg *Config, pr providersYAML) error {
	if pr.SearchProvider != "" {
		cfg.Providers.SearchProvider = pr.SearchProvider
	}
	if cfg.Providers.Providers == nil {
		cfg.Providers.Providers = make(map[string]ProviderCredential)
	}
	for name, p := range pr.Providers {
		cred := ProviderCredential{
			Name: name, Kind: models.ProviderKind(p.Kind), BaseURL: p.BaseURL, Model: p.Model,
			APIKeyEnv: p.APIKeyEnv, DefaultTemp: p.DefaultTemp, MinTemp: p.MinTemp, MaxTemp: p.MaxTemp,
			SupportsTemp: p.SupportsTemp, MaxTokens: p.MaxTokens,
			CostPerInputTok: p.CostPerInputTok, CostPerOutTok: p.CostPerOutTok, MaxRetries: p.MaxRetries,
		}
		if p.Timeout != "" {
			d, err := time.ParseDuration(p.Timeout)
			if err != nil {
				return fmt.Errorf("provider %s timeout: %w", name, err)
			}
			cred.Timeout = d
		} else if existing, ok := cfg.Providers.Providers[name]; ok {
			cred.Timeout = existing.Timeout
		}
		cfg.Providers.Providers[name] = cred
	}
	return nil
}

func applyScoring(cfg *Config, sc scoringYAML) error {
	if len(sc.Ranges) > 0 {
		ranges := make([]ScoringRange, 0, len(sc.Ranges))
		for _, r := range sc.Ranges {
			ranges = append(ranges, ScoringRange{
				Parameter:      models.Parameter(r.Parameter),
				DeliveryMethod: models.DeliveryMethod(r.DeliveryMethod),
				Min:            r.Min, Max: r.Max, Score: r.Score,
				IsExclusion: r.IsExclusion, RangeText: r.RangeText,
			})
		}
		cfg.Scoring.Ranges = ranges
	}
	for stage, raw := range sc.MeanStageDurations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("mean_stage_durations[%s]: %w", stage, err)
		}
		if cfg.Scoring.MeanStageDurations == nil {
			cfg.Scoring.MeanStageDurations = make(map[models.Stage]time.Duration)
		}
		cfg.Scoring.MeanStageDurations[models.Stage(stage)] = d
	}
	return nil
}

func applyHTTP(cfg *Config, h httpYAML) {
	if h.Port != "" {
		cfg.HTTP.Port = h.Port
	}
	if h.GinMode != "" {
		cfg.HTTP.GinMode = h.GinMode
	}
	if len(h.APIKeys) > 0 {
		cfg.HTTP.APIKeys = make(map[string]APIKeyScope, len(h.APIKeys))
		for key, scope := range h.APIKeys {
			cfg.HTTP.APIKeys[key] = APIKeyScope{CanSubmit: scope.CanSubmit, CanRead: scope.CanRead, CanCancel: scope.CanCancel}
		}
	}
}
