package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/realitycheck/internal/cache"
	"github.com/ppiankov/realitycheck/internal/extract"
	"github.com/ppiankov/realitycheck/internal/feedback"
	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/output"
	"github.com/ppiankov/realitycheck/internal/pipeline"
	"github.com/ppiankov/realitycheck/internal/prompt"
	"github.com/ppiankov/realitycheck/internal/store"
	"github.com/ppiankov/realitycheck/internal/store/postgres"
	"github.com/ppiankov/realitycheck/internal/store/sqlite"
	"github.com/ppiankov/realitycheck/internal/validate"
)

// memoryCacheTTL bounds how long a response stays in the in-process layer
const memoryCacheTTL = 30 * time.Minute

func newLogger(cfg model.Config) (*logging.Logger, error) {
	log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	return log, nil
}

func newPrinter() *output.Printer {
	return output.NewPrinter(!noColor, false)
}

// openStore connects the configured backend and applies the schema
func openStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case "postgres":
		st, err = postgres.Open(ctx, cfg.DSN)
	case "sqlite":
		st, err = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown store.driver %q", model.ErrConfig, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// cacheDir returns the configured cache directory or ~/.realitycheck/cache
func cacheDir(cfg model.CacheConfig) string {
	if cfg.Dir != "" {
		return cfg.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "realitycheck-cache")
	}
	return filepath.Join(home, ".realitycheck", "cache")
}

// newProvider builds the generation backend with caching and metrics around it
func newProvider(cfg model.Config, noCache bool) (llm.Provider, error) {
	base, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}

	var provider llm.Provider = base
	if cfg.Cache.Enabled && !noCache {
		ttl := time.Duration(cfg.Cache.TTL) * time.Hour
		c := cache.NewLayeredCache(memoryCacheTTL, cacheDir(cfg.Cache), ttl)
		provider = llm.NewCachedProvider(provider, c, cfg.LLM.Model, ttl)
	}
	return llm.Instrument(provider), nil
}

// newGuidance builds the feedback aggregator; analysis uses the provider only when enabled
func newGuidance(cfg model.Config, st store.Store, provider llm.Provider, prompts prompt.Set, log *logging.Logger) *feedback.Aggregator {
	var analyst llm.Provider
	if cfg.Feedback.Analyze {
		analyst = provider
	}
	return feedback.NewAggregator(st, analyst, prompts.Feedback, cfg.Feedback, log)
}

// buildPipeline wires every stage of a generation run. cfg must already be validated.
func buildPipeline(cfg model.Config, st store.Store, noCache bool, log *logging.Logger) (*pipeline.Pipeline, error) {
	prompts, err := prompt.Load(cfg.Pipeline.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}

	provider, err := newProvider(cfg, noCache)
	if err != nil {
		return nil, err
	}

	return pipeline.New(cfg.Pipeline, cfg.Sources, pipeline.Deps{
		Fetcher:     pipeline.NewFetcher(cfg.Fetch, log),
		Extractor:   extract.NewFactExtractor(provider, prompts.Extract, log),
		Synthesizer: extract.NewSynthesizer(provider, prompts.Synthesize, prompts.Policy, log),
		Validator:   validate.NewValidator(cfg.Validation),
		Guidance:    newGuidance(cfg, st, provider, prompts, log),
		Sink:        st,
		Log:         log,
	}), nil
}

// withRunTimeout bounds ctx by seconds; zero leaves it unbounded
func withRunTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
