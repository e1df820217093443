package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/realitycheck/internal/extract"
	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/llm/llmtest"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/prompt"
	"github.com/ppiankov/realitycheck/internal/validate"
	"github.com/ppiankov/realitycheck/internal/worker"
)

type staticSource []model.RawArticle

func (s staticSource) FetchAll(ctx context.Context, sources []model.Source) []model.RawArticle {
	return s
}

type fixedGuidance string

func (g fixedGuidance) Guidance(ctx context.Context) string { return string(g) }

type recordingSink struct {
	approved []model.PublishedClaim
	drafts   []model.PublishedClaim
	err      error
}

func (s *recordingSink) InsertClaims(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = append(s.approved, claims...)
	return claims, nil
}

func (s *recordingSink) InsertDrafts(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.drafts = append(s.drafts, claims...)
	return claims, nil
}

// articles returns n articles per source
func articles(sources []string, n int) staticSource {
	var out staticSource
	for _, src := range sources {
		for i := 1; i <= n; i++ {
			title := fmt.Sprintf("%s headline number %d about the economy", src, i)
			out = append(out, model.RawArticle{
				Title:         title,
				Body:          title,
				Source:        src,
				PublishedDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			})
		}
	}
	return out
}

// uniqueBackend answers extraction with one fact and synthesis with a fresh pair per call
func uniqueBackend() *llmtest.Provider {
	var n atomic.Int32
	return llmtest.New(func(req llm.GenerateRequest) llmtest.Reply {
		switch req.Stage {
		case extract.StageExtract:
			return llmtest.Reply{Text: `[{"fact": "Inflation fell to 2.8% in February", "context": "Lowest in a year"}, {"fact": "Second fact", "context": ""}]`}
		case extract.StageSynthesize:
			i := n.Add(1)
			return llmtest.Reply{Text: fmt.Sprintf(
				`{"true_claim": "Inflation fell to 2.8%% in report number %d", "false_claim": "Inflation rose to 4.1%% in report number %d", "explanation": "The report showed a decline."}`, i, i)}
		}
		return llmtest.Reply{Err: llmtest.ErrUnscripted}
	})
}

func testPipeline(p llm.Provider, src ArticleSource, sink Sink, cfg model.PipelineConfig, guidance GuidanceSource) *Pipeline {
	prompts := prompt.Default()
	cfg.Pacing = 0
	return New(cfg, nil, Deps{
		Fetcher:     src,
		Extractor:   extract.NewFactExtractor(p, prompts.Extract, nil),
		Synthesizer: extract.NewSynthesizer(p, prompts.Synthesize, prompts.Policy, nil),
		Validator:   validate.NewValidator(model.DefaultConfig().Validation),
		Guidance:    guidance,
		Sink:        sink,
	})
}

func TestRunCleanScenario(t *testing.T) {
	sink := &recordingSink{}
	backend := uniqueBackend()
	p := testPipeline(backend, articles([]string{"NPR", "BBC"}, 3), sink, model.DefaultConfig().Pipeline, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ArticlesFetched != 6 || summary.ClaimsPublished != 6 {
		t.Errorf("summary = %+v, want 6 articles and 6 claims", summary)
	}
	if summary.Destination != DestinationApproved || len(sink.approved) != 6 {
		t.Errorf("expected 6 approved claims, got %d (%s)", len(sink.approved), summary.Destination)
	}
	if summary.FactsExtracted != 12 {
		t.Errorf("facts extracted = %d, want 12", summary.FactsExtracted)
	}
	// one fact per article by default
	if n := len(backend.RequestsFor(extract.StageSynthesize)); n != 6 {
		t.Errorf("synthesis calls = %d, want 6", n)
	}
	for _, c := range sink.approved {
		if c.TrueClaim == c.FalseClaim {
			t.Errorf("identical pair promoted: %+v", c)
		}
		if c.Source != "NPR" && c.Source != "BBC" {
			t.Errorf("unexpected source %q", c.Source)
		}
	}
}

func TestRunSuppressesDuplicates(t *testing.T) {
	backend := llmtest.New(func(req llm.GenerateRequest) llmtest.Reply {
		if req.Stage == extract.StageExtract {
			return llmtest.Reply{Text: `[{"fact": "Same fact", "context": "c"}]`}
		}
		return llmtest.Reply{Text: `{"true_claim": "The Senate passed the bill 52-48", "false_claim": "The Senate passed the bill 61-39", "explanation": "The vote was close."}`}
	})
	sink := &recordingSink{}
	p := testPipeline(backend, articles([]string{"NPR"}, 3), sink, model.DefaultConfig().Pipeline, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ClaimsPublished != 1 || summary.Rejected != 2 {
		t.Errorf("summary = %+v, want 1 published and 2 rejected", summary)
	}
}

func TestRunNoArticles(t *testing.T) {
	backend := uniqueBackend()
	sink := &recordingSink{}
	p := testPipeline(backend, staticSource(nil), sink, model.DefaultConfig().Pipeline, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error when every source fails, got %v", err)
	}
	if summary.ClaimsPublished != 0 || len(sink.approved) != 0 {
		t.Errorf("expected zero claims, got %+v", summary)
	}
	if len(backend.Requests()) != 0 {
		t.Error("backend must not be called without articles")
	}
}

func TestRunEverySourceFailing(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer slow.Close()
	defer close(release)

	cfg := model.DefaultConfig()
	cfg.Fetch.InterSourceDelay = 0
	fetcher := NewFetcher(cfg.Fetch, nil)
	fetcher.timeout = 50 * time.Millisecond

	backend := uniqueBackend()
	sink := &recordingSink{}
	prompts := prompt.Default()
	cfg.Pipeline.Pacing = 0
	p := New(cfg.Pipeline, []model.Source{
		{Name: "Broken", URL: broken.URL},
		{Name: "Slow", URL: slow.URL},
		{Name: "Unreachable", URL: "http://127.0.0.1:1/feed"},
	}, Deps{
		Fetcher:     fetcher,
		Extractor:   extract.NewFactExtractor(backend, prompts.Extract, nil),
		Synthesizer: extract.NewSynthesizer(backend, prompts.Synthesize, prompts.Policy, nil),
		Validator:   validate.NewValidator(cfg.Validation),
		Sink:        sink,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("a run where every source fails must not error, got %v", err)
	}
	if summary.ArticlesFetched != 0 || summary.ClaimsPublished != 0 {
		t.Errorf("summary = %+v, want nothing fetched or published", summary)
	}
	if len(sink.approved) != 0 || len(backend.Requests()) != 0 {
		t.Errorf("nothing should reach the backend or the store: sink=%d requests=%d", len(sink.approved), len(backend.Requests()))
	}
}

func TestRunToleratesParseFaults(t *testing.T) {
	var calls atomic.Int32
	backend := llmtest.New(func(req llm.GenerateRequest) llmtest.Reply {
		if req.Stage == extract.StageExtract {
			if calls.Add(1) == 2 {
				return llmtest.Reply{Text: "Sorry, I cannot help with that."}
			}
			return llmtest.Reply{Text: `[{"fact": "A fact", "context": "c"}]`}
		}
		i := calls.Load()
		if i == 3 {
			return llmtest.Reply{Text: `{"true_claim": "missing the rest"}`}
		}
		return llmtest.Reply{Text: fmt.Sprintf(`{"true_claim": "Claim %d is the accurate statement", "false_claim": "Claim %d is the altered statement", "explanation": "Context."}`, i, i)}
	})
	sink := &recordingSink{}
	p := testPipeline(backend, articles([]string{"NPR"}, 3), sink, model.DefaultConfig().Pipeline, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ClaimsPublished != 1 {
		t.Errorf("expected only the well-formed article to publish, got %+v", summary)
	}
}

func TestRunPersistFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("connection refused")}
	p := testPipeline(uniqueBackend(), articles([]string{"NPR"}, 2), sink, model.DefaultConfig().Pipeline, nil)

	summary, err := p.Run(context.Background())
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if runErr.Stage != StagePersist {
		t.Errorf("stage = %s, want %s", runErr.Stage, StagePersist)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap cause: %v", err)
	}
	if summary.Candidates != 2 || summary.ClaimsPublished != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunDraftMode(t *testing.T) {
	cfg := model.DefaultConfig().Pipeline
	cfg.AutoPublish = false
	sink := &recordingSink{}
	p := testPipeline(uniqueBackend(), articles([]string{"NPR"}, 2), sink, cfg, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Destination != DestinationDrafts || len(sink.drafts) != 2 || len(sink.approved) != 0 {
		t.Errorf("expected 2 drafts, got summary %+v", summary)
	}
}

func TestRunCaps(t *testing.T) {
	cfg := model.DefaultConfig().Pipeline
	cfg.MaxArticles = 4
	cfg.MaxClaims = 2
	cfg.FactsPerArticle = 2
	backend := uniqueBackend()
	sink := &recordingSink{}
	p := testPipeline(backend, articles([]string{"NPR", "BBC"}, 3), sink, cfg, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ClaimsPublished != 2 {
		t.Errorf("claims = %d, want 2", summary.ClaimsPublished)
	}
	if summary.ArticlesProcessed != 1 {
		t.Errorf("two facts from the first article fill the cap, processed = %d", summary.ArticlesProcessed)
	}
	if summary.ArticlesFetched != 6 {
		t.Errorf("fetched = %d", summary.ArticlesFetched)
	}
}

func TestRunInjectsGuidance(t *testing.T) {
	backend := uniqueBackend()
	guidance := "LEARNED FROM USER FEEDBACK:\nAVOID patterns like these:\n1. (reported 3 times)"
	p := testPipeline(backend, articles([]string{"NPR"}, 1), &recordingSink{}, model.DefaultConfig().Pipeline, fixedGuidance(guidance))

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.GuidanceUsed {
		t.Error("summary should record guidance use")
	}
	reqs := backend.RequestsFor(extract.StageSynthesize)
	if len(reqs) != 1 {
		t.Fatalf("synthesis calls = %d", len(reqs))
	}
	if !strings.Contains(reqs[0].System+reqs[0].Prompt, "reported 3 times") {
		t.Error("guidance missing from synthesis request")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testPipeline(uniqueBackend(), articles([]string{"NPR"}, 2), &recordingSink{}, model.DefaultConfig().Pipeline, nil)
	_, err := p.Run(ctx)
	var runErr *RunError
	if !errors.As(err, &runErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled RunError, got %v", err)
	}
}

func TestRunPacesGenerationCalls(t *testing.T) {
	cfg := model.DefaultConfig().Pipeline
	p := testPipeline(uniqueBackend(), articles([]string{"NPR"}, 2), &recordingSink{}, cfg, nil)
	p.pacing = worker.NewIntervalLimiter(20 * time.Millisecond)

	start := time.Now()
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// four generation calls, three waits
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("calls were not paced, run took %v", elapsed)
	}
}
