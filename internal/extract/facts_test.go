package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/realitycheck/internal/llm"
	"github.com/ppiankov/realitycheck/internal/llm/llmtest"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/prompt"
)

func testArticle() model.RawArticle {
	return model.RawArticle{
		Title:         "Apple Announces Record Quarterly Revenue",
		Body:          "Apple reported quarterly revenue of $119.6 billion, beating expectations of $117.9 billion.",
		Source:        "Tech News",
		PublishedDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFactExtractor_Extract(t *testing.T) {
	tests := []struct {
		name    string
		reply   llmtest.Reply
		want    int
		forgets int
	}{
		{
			name:  "valid array",
			reply: llmtest.Reply{Text: `[{"fact": "Apple reported $119.6B revenue", "context": "Beat estimates"}, {"fact": "Estimates were $117.9B", "context": ""}]`},
			want:  2,
		},
		{
			name:  "wrapped in prose",
			reply: llmtest.Reply{Text: "Here are the facts:\n[{\"fact\": \"Apple reported $119.6B revenue\", \"context\": \"c\"}]"},
			want:  1,
		},
		{
			name:  "blank facts dropped",
			reply: llmtest.Reply{Text: `[{"fact": "  ", "context": "c"}, {"fact": "Real fact here", "context": "c"}]`},
			want:  1,
		},
		{name: "prose only", reply: llmtest.Reply{Text: "I could not find any facts."}, want: 0, forgets: 1},
		{name: "malformed", reply: llmtest.Reply{Text: `[{"fact": "x"`}, want: 0, forgets: 1},
		{name: "object not array", reply: llmtest.Reply{Text: `{"fact": "x"}`}, want: 0, forgets: 1},
		{name: "backend error", reply: llmtest.Reply{Err: errors.New("503")}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llmtest.New(func(llm.GenerateRequest) llmtest.Reply { return tt.reply })
			e := NewFactExtractor(p, prompt.Default().Extract, nil)

			facts := e.Extract(context.Background(), testArticle())
			if len(facts) != tt.want {
				t.Errorf("got %d facts, want %d: %+v", len(facts), tt.want, facts)
			}
			if got := len(p.Forgotten()); got != tt.forgets {
				t.Errorf("discarded %d replies, want %d", got, tt.forgets)
			}
		})
	}
}

func TestFactExtractor_PromptContents(t *testing.T) {
	p := llmtest.New(func(llm.GenerateRequest) llmtest.Reply { return llmtest.Reply{Text: "[]"} })
	e := NewFactExtractor(p, prompt.Default().Extract, nil)

	article := testArticle()
	article.Body = ""
	e.Extract(context.Background(), article)

	reqs := p.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Stage != StageExtract {
		t.Errorf("stage = %q", req.Stage)
	}
	if !strings.Contains(req.Prompt, "Title: "+article.Title) || !strings.Contains(req.Prompt, "Source: Tech News") {
		t.Errorf("prompt missing article fields:\n%s", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "Content: "+article.Title) {
		t.Error("empty body should fall back to the title")
	}
	if !req.CacheSystem || req.System == "" {
		t.Error("standing instructions should be sent as cacheable system text")
	}
}
