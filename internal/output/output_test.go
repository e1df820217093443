package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/realitycheck/internal/model"
)

func TestPrinterRunSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary model.RunSummary
		stdout  string
		stderr  string
	}{
		{
			name:    "published",
			summary: model.RunSummary{ArticlesFetched: 6, ClaimsPublished: 5, Destination: "approved"},
			stdout:  "[OK] 5 claims saved to approved",
		},
		{
			name:    "no articles",
			summary: model.RunSummary{},
			stderr:  "[WARN] No articles found",
		},
		{
			name:    "all rejected",
			summary: model.RunSummary{ArticlesFetched: 3, Candidates: 3, Rejected: 3},
			stderr:  "[WARN] No claims passed validation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			p := NewPrinterTo(&out, &errOut)
			p.RunSummary(tt.summary)

			if !strings.Contains(out.String(), "Run summary") {
				t.Errorf("missing header: %q", out.String())
			}
			if tt.stdout != "" && !strings.Contains(out.String(), tt.stdout) {
				t.Errorf("stdout %q missing %q", out.String(), tt.stdout)
			}
			if tt.stderr != "" && !strings.Contains(errOut.String(), tt.stderr) {
				t.Errorf("stderr %q missing %q", errOut.String(), tt.stderr)
			}
		})
	}
}

func TestQuietPrinterKeepsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &Printer{out: &out, err: &errOut, quiet: true}
	p.Info("hidden")
	p.Warning("hidden")
	p.Error("shown %d", 1)

	if out.Len() != 0 {
		t.Errorf("quiet printer wrote to stdout: %q", out.String())
	}
	if errOut.String() != "[ERROR] shown 1\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestClaimsTable(t *testing.T) {
	var buf bytes.Buffer
	claims := []model.PublishedClaim{{
		ID:            "0123456789abcdef",
		TrueClaim:     "The Senate passed the bill 52-48",
		FalseClaim:    "The Senate passed the bill 61-39",
		Source:        "NPR",
		Date:          time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		TimesReported: 3,
	}}
	if err := ClaimsTable(&buf, claims); err != nil {
		t.Fatalf("ClaimsTable: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"01234567", "NPR", "2025-03-14", "52-48", "61-39"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Error("id should be shortened")
	}
}

func TestEllipsize(t *testing.T) {
	if got := Ellipsize("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Ellipsize("a  very\nlong headline", 8); got != "a very …" {
		t.Errorf("got %q", got)
	}
}
