package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/metrics"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/prompt"
)

// StageFeedback labels feedback analysis calls
const StageFeedback = "feedback"

// MaxGuidanceClaims caps how many reported pairs are listed in guidance
const MaxGuidanceClaims = 5

// ReportedSource reads claims players have reported
type ReportedSource interface {
	SelectReported(ctx context.Context, minReportCount, limit int) ([]model.PublishedClaim, error)
}

// BuildGuidance renders up to five reported claims, most reported first, as an
// "avoid these patterns" block. Claims never reported are ignored; with none
// left it returns "".
func BuildGuidance(topReported []model.PublishedClaim) string {
	reported := make([]model.PublishedClaim, 0, len(topReported))
	for _, c := range topReported {
		if c.TimesReported > 0 {
			reported = append(reported, c)
		}
	}
	if len(reported) == 0 {
		return ""
	}

	sort.SliceStable(reported, func(i, j int) bool {
		return reported[i].TimesReported > reported[j].TimesReported
	})
	if len(reported) > MaxGuidanceClaims {
		reported = reported[:MaxGuidanceClaims]
	}

	var b strings.Builder
	b.WriteString("LEARNED FROM USER FEEDBACK:\n")
	b.WriteString("Players reported these claim pairs as unfair, confusing or too easy. AVOID patterns like these:\n")
	for i, c := range reported {
		fmt.Fprintf(&b, "%d. (reported %d %s)\n", i+1, c.TimesReported, plural(c.TimesReported, "time", "times"))
		fmt.Fprintf(&b, "   TRUE: %s\n", c.TrueClaim)
		fmt.Fprintf(&b, "   FALSE: %s\n", c.FalseClaim)
	}
	b.WriteString("Write the new pair so it does not repeat these problems.")
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Aggregator turns stored reports into the guidance string for a run
type Aggregator struct {
	source   ReportedSource
	provider llm.Provider // nil disables analysis
	tmpl     prompt.Template
	cfg      model.FeedbackConfig
	log      *logging.Logger
}

// NewAggregator creates a new aggregator. provider may be nil.
func NewAggregator(source ReportedSource, provider llm.Provider, tmpl prompt.Template, cfg model.FeedbackConfig, log *logging.Logger) *Aggregator {
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = MaxGuidanceClaims
	}
	if cfg.MinReportCount <= 0 {
		cfg.MinReportCount = 1
	}
	if cfg.AnalyzeLimit <= 0 {
		cfg.AnalyzeLimit = 20
	}
	return &Aggregator{source: source, provider: provider, tmpl: tmpl, cfg: cfg, log: log.Component("feedback")}
}

// Guidance loads reported claims and builds the guidance string. Guidance is a
// soft signal, so a failed read is logged and the run proceeds unguided.
func (a *Aggregator) Guidance(ctx context.Context) string {
	limit := a.cfg.Limit
	if a.cfg.Analyze && a.provider != nil && a.cfg.AnalyzeLimit > limit {
		limit = a.cfg.AnalyzeLimit
	}

	reported, err := a.source.SelectReported(ctx, a.cfg.MinReportCount, limit)
	if err != nil {
		a.log.Warn("could not load reported claims, continuing without guidance", "error", err)
		return ""
	}

	guidance := BuildGuidance(reported)
	if guidance == "" {
		a.log.Info("no reported claims, synthesis unguided")
		return ""
	}

	if a.cfg.Analyze && a.provider != nil {
		if analysis := a.analyze(ctx, reported); analysis != "" {
			guidance = "LEARNED FROM USER FEEDBACK:\n" + analysis + "\nAVOID these patterns.\n\n" + strings.TrimPrefix(guidance, "LEARNED FROM USER FEEDBACK:\n")
		}
	}

	a.log.Info("guidance built", "reported_claims", len(reported))
	return guidance
}

// analyze asks the backend to summarize what the reported pairs have in common
func (a *Aggregator) analyze(ctx context.Context, reported []model.PublishedClaim) string {
	data := prompt.FeedbackData{}
	for _, c := range reported {
		data.Claims = append(data.Claims, prompt.FeedbackClaim{
			TrueClaim:     c.TrueClaim,
			FalseClaim:    c.FalseClaim,
			Explanation:   c.Explanation,
			TimesReported: c.TimesReported,
		})
	}

	rendered, err := a.tmpl.Render(data)
	if err != nil {
		a.log.Error("render feedback prompt", "error", err)
		return ""
	}

	req := llm.GenerateRequest{
		System:    rendered.System,
		Prompt:    rendered.User,
		MaxTokens: rendered.MaxTokens,
		Stage:     StageFeedback,
	}
	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		a.log.Warn("feedback analysis failed, using reported list only", "error", err)
		return ""
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		metrics.RecordParseFailure(StageFeedback)
		llm.Forget(a.provider, req)
	}
	return text
}
