package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSetValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default set invalid: %v", err)
	}
}

func TestRenderSynthesize(t *testing.T) {
	set := Default()
	r, err := set.Synthesize.Render(SynthesizeData{
		Fact:     "Apple reported $119.6B revenue",
		Context:  "Beat expectations",
		Source:   "Reuters",
		Date:     "2025-02-01",
		Guidance: "LEARNED FROM USER FEEDBACK: avoid X",
		Policy:   set.Policy,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{"30-60%", "10-25 percentage points", "months or quarters"} {
		if !strings.Contains(r.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	for _, want := range []string{"Apple reported $119.6B revenue", "Reuters", "LEARNED FROM USER FEEDBACK"} {
		if !strings.Contains(r.User, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	if r.Version != "v3" || r.MaxTokens != 1000 {
		t.Errorf("unexpected metadata: %+v", r)
	}
}

func TestRenderSynthesizeWithoutGuidance(t *testing.T) {
	set := Default()
	r, err := set.Synthesize.Render(SynthesizeData{Fact: "f", Context: "c", Source: "s", Policy: set.Policy})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(r.User, "\n\n\n") {
		t.Error("empty guidance should not leave a gap")
	}
}

func TestRenderFeedback(t *testing.T) {
	r, err := Default().Feedback.Render(FeedbackData{Claims: []FeedbackClaim{
		{TrueClaim: "t1", FalseClaim: "f1", TimesReported: 3},
		{TrueClaim: "t2", FalseClaim: "f2", TimesReported: 1},
	}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.User, "1. Reported 3 times") || !strings.Contains(r.User, "2. Reported 1 times") {
		t.Errorf("unexpected feedback prompt:\n%s", r.User)
	}
}

func TestRenderMissingField(t *testing.T) {
	tmpl := Template{Name: "bad", User: "{{.Nope}}"}
	if _, err := tmpl.Render(map[string]string{}); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
policy:
  number_change_min_pct: 40
  number_change_max_pct: 50
synthesize:
  version: v4-test
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.Policy.NumberChangeMinPct != 40 || set.Policy.NumberChangeMaxPct != 50 {
		t.Errorf("policy not overridden: %+v", set.Policy)
	}
	if set.Policy.PercentPointsMin != 10 {
		t.Error("unspecified fields must keep defaults")
	}
	if set.Synthesize.ID() != "synthesize@v4-test" {
		t.Errorf("ID = %s", set.Synthesize.ID())
	}
	if set.Synthesize.User == "" {
		t.Error("user template must keep default")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	_ = os.WriteFile(path, []byte("policy:\n  number_change_min_pct: 80\n  number_change_max_pct: 20\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if set.Extract.ID() != "extract@v2" {
		t.Errorf("unexpected default: %s", set.Extract.ID())
	}
}
