package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"
	"github.com/tmc/langchaingo/llms/openai"

	ralphconfig "github.com/scoutline/ralph/internal/config"
	"github.com/scoutline/ralph/internal/database"
	"github.com/scoutline/ralph/pkg/confidence"
	"github.com/scoutline/ralph/pkg/exploration"
	"github.com/scoutline/ralph/pkg/llmclient"
	"github.com/scoutline/ralph/pkg/metrics"
	"github.com/scoutline/ralph/pkg/notify"
	"github.com/scoutline/ralph/pkg/opshttp"
	"github.com/scoutline/ralph/pkg/scheduler"
	"github.com/scoutline/ralph/pkg/search"
	"github.com/scoutline/ralph/pkg/shared/logging"
	sharedhttp "github.com/scoutline/ralph/pkg/shared/http"
	"github.com/scoutline/ralph/pkg/signalstore"
	"github.com/scoutline/ralph/pkg/validation"
	"github.com/scoutline/ralph/pkg/verifier"

	"github.com/redis/go-redis/v9"
)

// commandContext lazily builds every collaborator the CLI subcommands
// need from a single loaded Config, following five82-spindle's
// once-built, shared-context pattern so `run`, `status`, and `export`
// each pay the wiring cost exactly once per process.
type commandContext struct {
	configPath *string

	once      sync.Once
	buildErr  error
	cfg       *ralphconfig.Config
	tables    *ralphconfig.TableWatcher
	db        *sqlx.DB
	log       logr.Logger
	scheduler *scheduler.Scheduler
}

func newCommandContext(configPath *string) *commandContext {
	return &commandContext{configPath: configPath}
}

func (c *commandContext) build(ctx context.Context) error {
	c.once.Do(func() {
		c.buildErr = c.buildOnce(ctx)
	})
	return c.buildErr
}

func (c *commandContext) buildOnce(ctx context.Context) error {
	path := ""
	if c.configPath != nil {
		path = *c.configPath
	}
	var cfg ralphconfig.Config
	if path == "" {
		cfg = ralphconfig.Default()
	} else {
		loaded, err := ralphconfig.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = *loaded
	}
	c.cfg = &cfg

	zlog, err := logging.NewZapLogger(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	c.log = logging.Logr(zlog)

	tables, err := ralphconfig.NewTableWatcher(cfg.SourceTypeTablePath, cfg.KeywordTablePath)
	if err != nil {
		return fmt.Errorf("failed to load static tables: %w", err)
	}
	c.tables = tables

	if cfg.Store.DSN != "" {
		db, err := database.Open(ctx, database.Config{DSN: cfg.Store.DSN})
		if err != nil {
			return fmt.Errorf("failed to connect to signal store: %w", err)
		}
		c.db = db
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	}

	loop, err := c.buildLoop(ctx, &cfg)
	if err != nil {
		return err
	}

	c.scheduler = &scheduler.Scheduler{
		Loop:           loop,
		Dossiers:       newFileDossierFetcher(cfg.DossierDir),
		Redis:          redisClient,
		Notifier:       c.buildNotifier(&cfg),
		ConcurrencyCap: cfg.Exploration.ConcurrencyCap,
	}
	return nil
}

func (c *commandContext) buildNotifier(cfg *ralphconfig.Config) scheduler.RunSummaryNotifier {
	if !cfg.Notifier.Enabled {
		return notify.NoopNotifier{}
	}
	return notify.NewSlackNotifier(os.Getenv("SLACK_BOT_TOKEN"), cfg.Notifier.Channel)
}

func (c *commandContext) buildLoop(ctx context.Context, cfg *ralphconfig.Config) (*exploration.Loop, error) {
	httpClient := sharedhttp.New(sharedhttp.DefaultConfig())

	searchClient := search.New(httpClient, search.Config{
		Endpoint:          cfg.Search.Endpoint,
		OAuthTokenURL:     os.Getenv("RALPH_SEARCH_OAUTH_TOKEN_URL"),
		OAuthClientID:     os.Getenv("RALPH_SEARCH_OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("RALPH_SEARCH_OAUTH_CLIENT_SECRET"),
	})

	cascade, specs, err := c.buildCascade(ctx, cfg)
	if err != nil {
		return nil, err
	}
	extractor := &llmclient.Extractor{Cascade: cascade, Prompts: llmclient.DefaultPromptLibrary(), Specs: specs}

	v := verifier.New(httpClient, c.tables.SourceTypes())

	var store validation.Store
	var writer exploration.Writer
	if c.db != nil {
		gateway := signalstore.New(c.db)
		store = gateway
		writer = gateway
	}

	registry := metrics.New()

	pipeline := &validation.Pipeline{
		Verifier: v,
		Checker: &validation.LLMConsistencyChecker{
			Cascade: cascade, Prompts: llmclient.DefaultPromptLibrary(), Specs: specs,
			MaxAdjustment: cfg.Thresholds.MaxLLMAdjustment,
		},
		Store: store,
		Thresholds: validation.Thresholds{
			MinEvidence:              cfg.Thresholds.MinEvidence,
			MinCandidateConfidence:   cfg.Thresholds.MinCandidateConfidence,
			MinMeanPreCredibility:    validation.DefaultThresholds().MinMeanPreCredibility,
			MinMeanPostCredibility:   cfg.Thresholds.MinMeanPostCredibility,
			MaxLLMAdjustment:         cfg.Thresholds.MaxLLMAdjustment,
			DuplicateCosineThreshold: cfg.Thresholds.DuplicateCosineThreshold,
			DuplicateCosineEnabled:   cfg.Thresholds.DuplicateCosineCheckEnabled,
		},
		ClaimKeywords: c.tables.Keywords(),
		Metrics:       registry,
	}

	return &exploration.Loop{
		SourceTypeTable:   c.tables.SourceTypes(),
		Keywords:          c.tables.Keywords(),
		Search:            searchClient,
		Extractor:         extractor,
		Pipeline:          pipeline,
		Writer:            writer,
		Store:             store,
		Metrics:           registry,
		ConfidenceParams:  confidence.DefaultParams(),
		ExplorationConfig: cfg.Exploration,
		TemporalConfig:    cfg.Temporal,
	}, nil
}

// buildCascade wires the three concrete model tiers onto their
// respective provider SDKs (SPEC_FULL.md §4.2).
func (c *commandContext) buildCascade(ctx context.Context, cfg *ralphconfig.Config) (*llmclient.Cascade, map[llmclient.Tier]llmclient.ModelSpec, error) {
	specs := map[llmclient.Tier]llmclient.ModelSpec{
		llmclient.TierSmall:  {Provider: cfg.Cascade.Small.Provider, Model: cfg.Cascade.Small.Model, MaxTokens: cfg.Cascade.Small.MaxTokens},
		llmclient.TierMedium: {Provider: cfg.Cascade.Medium.Provider, Model: cfg.Cascade.Medium.Model, MaxTokens: cfg.Cascade.Medium.MaxTokens},
		llmclient.TierLarge:  {Provider: cfg.Cascade.Large.Provider, Model: cfg.Cascade.Large.Model, MaxTokens: cfg.Cascade.Large.MaxTokens},
	}

	small := llmclient.WithBreaker("llm-cascade-small", llmclient.NewAnthropicCaller(os.Getenv("ANTHROPIC_API_KEY"), cfg.Cascade.Small.Model))

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load aws config for bedrock: %w", err)
	}
	medium := llmclient.WithBreaker("llm-cascade-medium", llmclient.NewBedrockCaller(bedrockruntime.NewFromConfig(awsCfg), cfg.Cascade.Medium.Model))

	largeModel, err := openai.New(openai.WithToken(os.Getenv("OPENAI_API_KEY")), openai.WithModel(cfg.Cascade.Large.Model))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build large-tier langchain model: %w", err)
	}
	large := llmclient.WithBreaker("llm-cascade-large", llmclient.NewLangchainCaller(largeModel, cfg.Cascade.Large.Model))

	return &llmclient.Cascade{Small: small, Medium: medium, Large: large}, specs, nil
}

// opsHandler assembles the Ops HTTP Surface for this process, once the
// Scheduler is built.
func (c *commandContext) opsHandler(ctx context.Context) (http.Handler, error) {
	if err := c.build(ctx); err != nil {
		return nil, err
	}
	server := &opshttp.Server{
		Status:         c.scheduler,
		Metrics:        c.scheduler.Loop.Metrics,
		AllowedOrigins: c.cfg.Ops.AllowedOrigins,
	}
	return server.Handler(), nil
}
