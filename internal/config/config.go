// Package config loads and validates ralph's process-wide configuration
// surface (spec.md §6): exploration tunables, thresholds, the model
// cascade, the two versioned static tables, and temporal windows.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ExplorationConfig holds the exploration tunables from spec.md §6.
type ExplorationConfig struct {
	MaxIterations       int     `yaml:"max_iterations" validate:"gte=1,lte=30"`
	MaxCostPerEntityUSD float64 `yaml:"max_cost_per_entity_usd" validate:"gt=0"`
	StartingConfidence  float64 `yaml:"starting_confidence" validate:"gte=0.05,lte=0.95"`
	AbsoluteCeiling     float64 `yaml:"absolute_ceiling" validate:"gte=0.05,lte=1"`
	WeakOnlyCeiling     float64 `yaml:"weak_only_ceiling" validate:"gte=0.05,lte=1"`
	WeakDecayConstant   float64 `yaml:"weak_decay_constant" validate:"gte=0"`
	ConcurrencyCap      int     `yaml:"concurrency_cap" validate:"gte=1"`
}

// ThresholdsConfig holds the validation/hop thresholds from spec.md §6.
type ThresholdsConfig struct {
	MinEvidence               int     `yaml:"min_evidence" validate:"gte=1"`
	MinCandidateConfidence     float64 `yaml:"min_candidate_confidence" validate:"gte=0,lte=1"`
	MinMeanPostCredibility     float64 `yaml:"min_mean_post_credibility" validate:"gte=0,lte=1"`
	DuplicateCosineThreshold   float64 `yaml:"duplicate_cosine_threshold" validate:"gte=0,lte=1"`
	DuplicateCosineCheckEnabled bool   `yaml:"duplicate_cosine_check_enabled"`
	MaxLLMAdjustment           float64 `yaml:"max_llm_adjustment" validate:"gte=0,lte=1"`
}

// ModelSpec names one tier of the LLM cascade (spec.md §4.2/§6).
type ModelSpec struct {
	Provider  string `yaml:"provider" validate:"required"`
	Model     string `yaml:"model" validate:"required"`
	MaxTokens int    `yaml:"max_tokens" validate:"gt=0"`
}

// CascadeConfig orders the three model tiers SMALL -> MEDIUM -> LARGE.
type CascadeConfig struct {
	Small  ModelSpec `yaml:"small"`
	Medium ModelSpec `yaml:"medium"`
	Large  ModelSpec `yaml:"large"`
}

// TemporalConfig holds the seasonality/recurrence/momentum windows
// (spec.md §6).
type TemporalConfig struct {
	SeasonalityWindowDays int `yaml:"seasonality_window_days" validate:"gt=0"`
	ZScoreWindowDays      int `yaml:"zscore_window_days" validate:"gt=0"`
	MomentumShortDays     int `yaml:"momentum_short_days" validate:"gt=0"`
	MomentumLongDays      int `yaml:"momentum_long_days" validate:"gt=0"`
}

// SearchConfig configures the Search Client's transport.
type SearchConfig struct {
	Engine     string        `yaml:"engine" validate:"required"`
	Endpoint   string        `yaml:"endpoint" validate:"required"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
}

// StoreConfig configures the Postgres-backed Signal Store Gateway.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the Scheduler's checkpoint/idempotency cache.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifierConfig configures the optional Slack run-summary boundary.
type NotifierConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// OpsConfig configures the read-only Ops HTTP Surface (SPEC_FULL.md §2
// component 18).
type OpsConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the full process-wide configuration surface (spec.md §6).
type Config struct {
	Exploration ExplorationConfig `yaml:"exploration"`
	Thresholds  ThresholdsConfig  `yaml:"thresholds"`
	Cascade     CascadeConfig     `yaml:"cascade"`
	Temporal    TemporalConfig    `yaml:"temporal"`
	Search      SearchConfig      `yaml:"search"`
	Store       StoreConfig       `yaml:"store"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Notifier    NotifierConfig    `yaml:"notifier"`
	Ops         OpsConfig         `yaml:"ops"`
	// SourceTypeTablePath and KeywordTablePath point at the two
	// versioned static tables that are hot-reloaded (SPEC_FULL.md §6).
	SourceTypeTablePath string `yaml:"source_type_table_path"`
	KeywordTablePath    string `yaml:"keyword_table_path"`
	// DossierDir points at the directory the dossier generator (out of
	// scope) writes one "<entity_id>.json" file into per entity.
	DossierDir string `yaml:"dossier_dir"`
}

// Default returns the configuration defaults named across spec.md.
func Default() Config {
	return Config{
		Exploration: ExplorationConfig{
			MaxIterations:       30,
			MaxCostPerEntityUSD: 2.00,
			StartingConfidence:  0.20,
			AbsoluteCeiling:     0.95,
			WeakOnlyCeiling:     0.70,
			WeakDecayConstant:   0.5,
			ConcurrencyCap:      8,
		},
		Thresholds: ThresholdsConfig{
			MinEvidence:             3,
			MinCandidateConfidence:  0.70,
			MinMeanPostCredibility:  0.55,
			DuplicateCosineThreshold: 0.85,
			MaxLLMAdjustment:        0.15,
		},
		Temporal: TemporalConfig{
			SeasonalityWindowDays: 90,
			ZScoreWindowDays:      180,
			MomentumShortDays:     30,
			MomentumLongDays:      90,
		},
		Search: SearchConfig{
			Engine:     "generic-oauth",
			Endpoint:   "https://search.internal.example.com/v1/search",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Ops:     OpsConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
	}
}

var validate = validator.New()

// Load reads and parses the YAML config file at path, applying spec.md
// defaults for anything the file leaves unset, then validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("failed to validate config file: %w", err)
	}

	if cfg.Exploration.MaxIterations > 30 {
		return nil, fmt.Errorf("max_iterations %d exceeds the absolute cap of 30", cfg.Exploration.MaxIterations)
	}

	return &cfg, nil
}
