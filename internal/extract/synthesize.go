package extract

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/metrics"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/prompt"
)

// StageSynthesize labels claim synthesis calls
const StageSynthesize = "synthesize"

// Synthesizer turns one fact into a candidate true/false pair
type Synthesizer struct {
	provider llm.Provider
	tmpl     prompt.Template
	policy   prompt.Policy
	log      *logging.Logger
	now      func() time.Time
}

// NewSynthesizer creates a new claim synthesizer
func NewSynthesizer(provider llm.Provider, tmpl prompt.Template, policy prompt.Policy, log *logging.Logger) *Synthesizer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Synthesizer{
		provider: provider,
		tmpl:     tmpl,
		policy:   policy,
		log:      log.Component("synthesize"),
		now:      time.Now,
	}
}

type synthesizedPair struct {
	TrueClaim   string `json:"true_claim"`
	FalseClaim  string `json:"false_claim"`
	Explanation string `json:"explanation"`
}

// Synthesize returns a candidate pair for fact, or nil when the backend fails
// or its reply lacks any required field.
func (s *Synthesizer) Synthesize(ctx context.Context, fact model.ExtractedFact, article model.RawArticle, guidance string) *model.CandidateClaimPair {
	date := article.PublishedDate
	if date.IsZero() {
		date = s.now().UTC()
	}

	rendered, err := s.tmpl.Render(prompt.SynthesizeData{
		Fact:     fact.Statement,
		Context:  fact.Context,
		Source:   article.Source,
		Date:     model.DateString(date),
		Guidance: guidance,
		Policy:   s.policy,
	})
	if err != nil {
		s.log.Error("render synthesis prompt", "error", err)
		return nil
	}

	req := llm.GenerateRequest{
		System:      rendered.System,
		CacheSystem: true,
		Prompt:      rendered.User,
		MaxTokens:   rendered.MaxTokens,
		Stage:       StageSynthesize,
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.log.Warn("claim synthesis failed", "fact", fact.Statement, "error", err)
		return nil
	}

	parsed := ParseObject[synthesizedPair](resp.Text)
	if !parsed.OK() {
		metrics.RecordParseFailure(StageSynthesize)
		llm.Forget(s.provider, req)
		s.log.Warn("unusable synthesis reply", "fact", fact.Statement, "reason", parsed.Failure.Reason)
		return nil
	}

	p := parsed.Value
	p.TrueClaim = strings.TrimSpace(p.TrueClaim)
	p.FalseClaim = strings.TrimSpace(p.FalseClaim)
	p.Explanation = strings.TrimSpace(p.Explanation)
	if p.TrueClaim == "" || p.FalseClaim == "" || p.Explanation == "" {
		metrics.RecordParseFailure(StageSynthesize)
		llm.Forget(s.provider, req)
		s.log.Warn("synthesis reply missing fields", "fact", fact.Statement)
		return nil
	}

	return &model.CandidateClaimPair{
		TrueClaim:   p.TrueClaim,
		FalseClaim:  p.FalseClaim,
		Explanation: p.Explanation,
		Source:      article.Source,
		Date:        date,
	}
}
