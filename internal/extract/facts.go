package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/metrics"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/prompt"
)

// StageExtract labels fact extraction calls
const StageExtract = "extract"

// FactExtractor asks the backend for headline facts in an article
type FactExtractor struct {
	provider llm.Provider
	tmpl     prompt.Template
	log      *logging.Logger
}

// NewFactExtractor creates a new fact extractor
func NewFactExtractor(provider llm.Provider, tmpl prompt.Template, log *logging.Logger) *FactExtractor {
	if log == nil {
		log = logging.NewNop()
	}
	return &FactExtractor{provider: provider, tmpl: tmpl, log: log.Component("extract")}
}

// Extract returns the facts found in article. Any backend or parse problem
// yields an empty list; it never fails.
func (e *FactExtractor) Extract(ctx context.Context, article model.RawArticle) []model.ExtractedFact {
	body := article.Body
	if strings.TrimSpace(body) == "" {
		body = article.Title
	}

	rendered, err := e.tmpl.Render(prompt.ExtractData{
		Title:  article.Title,
		Source: article.Source,
		Body:   body,
	})
	if err != nil {
		e.log.Error("render extract prompt", "error", err)
		return nil
	}

	req := llm.GenerateRequest{
		System:      rendered.System,
		CacheSystem: true,
		Prompt:      rendered.User,
		MaxTokens:   rendered.MaxTokens,
		Stage:       StageExtract,
	}
	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		e.log.Warn("fact extraction failed", "title", article.Title, "source", article.Source, "error", err)
		return nil
	}

	parsed := ParseArray[model.ExtractedFact](resp.Text)
	if !parsed.OK() {
		metrics.RecordParseFailure(StageExtract)
		llm.Forget(e.provider, req)
		e.log.Warn("unusable extraction reply", "title", article.Title, "reason", parsed.Failure.Reason)
		return nil
	}

	facts := make([]model.ExtractedFact, 0, len(parsed.Value))
	for _, f := range parsed.Value {
		f.Statement = strings.TrimSpace(f.Statement)
		f.Context = strings.TrimSpace(f.Context)
		if f.Statement == "" {
			continue
		}
		facts = append(facts, f)
	}

	e.log.Debug("facts extracted", "title", article.Title, "count", len(facts), "template", e.tmpl.ID())
	return facts
}
