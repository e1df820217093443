package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/metrics"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/validate"
	"github.com/ppiankov/realitycheck/internal/worker"
)

// Stage names a step of a run
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageGenerate Stage = "extract_and_synthesize"
	StagePersist  Stage = "persist"
)

const generationPacer = "llm"

// Destinations for promoted claims
const (
	DestinationApproved = "approved"
	DestinationDrafts   = "drafts"
)

// RunError reports the stage at which a run failed
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed at %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ArticleSource yields the articles for a run
type ArticleSource interface {
	FetchAll(ctx context.Context, sources []model.Source) []model.RawArticle
}

// FactExtractor pulls facts out of one article
type FactExtractor interface {
	Extract(ctx context.Context, article model.RawArticle) []model.ExtractedFact
}

// ClaimSynthesizer turns one fact into a candidate pair, or nil
type ClaimSynthesizer interface {
	Synthesize(ctx context.Context, fact model.ExtractedFact, article model.RawArticle, guidance string) *model.CandidateClaimPair
}

// GuidanceSource produces the feedback guidance for a run
type GuidanceSource interface {
	Guidance(ctx context.Context) string
}

// Sink persists promoted claims
type Sink interface {
	InsertClaims(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error)
	InsertDrafts(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error)
}

// Deps are the collaborators of a Pipeline. Guidance may be nil.
type Deps struct {
	Fetcher     ArticleSource
	Extractor   FactExtractor
	Synthesizer ClaimSynthesizer
	Validator   *validate.Validator
	Guidance    GuidanceSource
	Sink        Sink
	Log         *logging.Logger
}

// Pipeline runs fetch, extract, synthesize, validate and persist in sequence
type Pipeline struct {
	deps    Deps
	cfg     model.PipelineConfig
	sources []model.Source
	pacing  *worker.Limiter
	log     *logging.Logger
	now     func() time.Time
}

// New creates a pipeline over sources
func New(cfg model.PipelineConfig, sources []model.Source, deps Deps) *Pipeline {
	log := deps.Log
	if log == nil {
		log = logging.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validate.NewValidator(model.ValidationConfig{})
	}

	defaults := model.DefaultConfig().Pipeline
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = defaults.MaxArticles
	}
	if cfg.MaxClaims <= 0 {
		cfg.MaxClaims = defaults.MaxClaims
	}
	if cfg.FactsPerArticle <= 0 {
		cfg.FactsPerArticle = defaults.FactsPerArticle
	}

	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		sources: sources,
		pacing:  worker.NewIntervalLimiter(cfg.PacingInterval()),
		log:     log.Component("pipeline"),
		now:     time.Now,
	}
}

// Run executes one generation run. Source and generation faults are absorbed;
// only persistence or cancellation fail the run, as a *RunError.
func (p *Pipeline) Run(ctx context.Context) (model.RunSummary, error) {
	start := p.now()
	summary := model.RunSummary{StartedAt: start.UTC(), Destination: p.destination()}

	summary, err := p.run(ctx, summary)
	summary.Duration = p.now().Sub(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordRun(status, summary.Duration.Seconds())
	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary model.RunSummary) (model.RunSummary, error) {
	// FETCH
	articles := p.deps.Fetcher.FetchAll(ctx, p.sources)
	summary.ArticlesFetched = len(articles)
	if err := ctx.Err(); err != nil {
		return summary, &RunError{Stage: StageFetch, Err: err}
	}
	if len(articles) == 0 {
		p.log.Warn("no articles fetched, nothing to generate")
		return summary, nil
	}
	if len(articles) > p.cfg.MaxArticles {
		articles = articles[:p.cfg.MaxArticles]
	}
	p.log.Info("articles fetched", "fetched", summary.ArticlesFetched, "processing", len(articles))

	guidance := ""
	if p.deps.Guidance != nil {
		guidance = p.deps.Guidance.Guidance(ctx)
	}
	summary.GuidanceUsed = guidance != ""

	// EXTRACT_AND_SYNTHESIZE + VALIDATE
	var promoted []model.CandidateClaimPair
	for _, article := range articles {
		if len(promoted) >= p.cfg.MaxClaims {
			break
		}
		summary.ArticlesProcessed++

		if err := p.pacing.Wait(ctx, generationPacer); err != nil {
			return summary, &RunError{Stage: StageGenerate, Err: err}
		}
		facts := p.deps.Extractor.Extract(ctx, article)
		summary.FactsExtracted += len(facts)
		if len(facts) > p.cfg.FactsPerArticle {
			facts = facts[:p.cfg.FactsPerArticle]
		}

		for _, fact := range facts {
			if len(promoted) >= p.cfg.MaxClaims {
				break
			}
			if err := p.pacing.Wait(ctx, generationPacer); err != nil {
				return summary, &RunError{Stage: StageGenerate, Err: err}
			}

			candidate := p.deps.Synthesizer.Synthesize(ctx, fact, article, guidance)
			if candidate == nil {
				continue
			}
			summary.Candidates++

			if rejection := p.deps.Validator.Check(*candidate, promoted); rejection != nil {
				summary.Rejected++
				metrics.RecordRejection(string(rejection.Rule))
				p.log.Debug("candidate rejected", "rule", rejection.Rule, "detail", rejection.Detail, "source", candidate.Source)
				continue
			}
			promoted = append(promoted, *candidate)
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, &RunError{Stage: StageGenerate, Err: err}
	}
	if len(promoted) == 0 {
		p.log.Info("no candidates promoted")
		return summary, nil
	}

	// PERSIST
	now := p.now()
	claims := make([]model.PublishedClaim, 0, len(promoted))
	for _, c := range promoted {
		claims = append(claims, c.Publish(now))
	}

	var saved []model.PublishedClaim
	var err error
	if p.cfg.AutoPublish {
		saved, err = p.deps.Sink.InsertClaims(ctx, claims)
	} else {
		saved, err = p.deps.Sink.InsertDrafts(ctx, claims)
	}
	if err != nil {
		return summary, &RunError{Stage: StagePersist, Err: err}
	}

	summary.ClaimsPublished = len(saved)
	metrics.RecordPublished(summary.Destination, len(saved))
	p.log.Info("run complete",
		"articles", summary.ArticlesFetched,
		"candidates", summary.Candidates,
		"rejected", summary.Rejected,
		"claims", summary.ClaimsPublished,
		"destination", summary.Destination)
	return summary, nil
}

func (p *Pipeline) destination() string {
	if p.cfg.AutoPublish {
		return DestinationApproved
	}
	return DestinationDrafts
}
