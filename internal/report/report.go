// Package report renders the moderation review of reported claims.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

// Review is the input for one report
type Review struct {
	GeneratedAt time.Time
	Stats       store.Stats
	Reported    []model.PublishedClaim
	Guidance    string // what the next run would be told, may be empty
}

// Renderer writes reviews as Markdown and HTML
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub-flavored tables enabled
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Markdown renders r as a Markdown document
func (rd *Renderer) Markdown(r Review) string {
	var b strings.Builder

	b.WriteString("# Reality Check review\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", r.GeneratedAt.UTC().Format(time.RFC1123))

	b.WriteString("## Totals\n\n")
	b.WriteString("| Approved | Reported | Drafts |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", r.Stats.Approved, r.Stats.Reported, r.Stats.Drafts)

	b.WriteString("## Reported claims\n\n")
	if len(r.Reported) == 0 {
		b.WriteString("No claims have been reported.\n")
	}
	for i, c := range r.Reported {
		fmt.Fprintf(&b, "### %d. %s (%s)\n\n", i+1, escape(c.Source), model.DateString(c.Date))
		fmt.Fprintf(&b, "- **Reports:** %d, **shown:** %d\n", c.TimesReported, c.TimesShown)
		fmt.Fprintf(&b, "- **True:** %s\n", escape(c.TrueClaim))
		fmt.Fprintf(&b, "- **False:** %s\n", escape(c.FalseClaim))
		fmt.Fprintf(&b, "- **Explanation:** %s\n", escape(c.Explanation))
		fmt.Fprintf(&b, "- **ID:** `%s`\n\n", c.ID)
	}

	if r.Guidance != "" {
		b.WriteString("\n## Guidance for the next run\n\n```text\n")
		b.WriteString(strings.TrimRight(r.Guidance, "\n"))
		b.WriteString("\n```\n")
	}

	return b.String()
}

// HTML converts the Markdown rendering into a standalone HTML page
func (rd *Renderer) HTML(r Review) (string, error) {
	var body bytes.Buffer
	if err := rd.md.Convert([]byte(rd.Markdown(r)), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Reality Check review</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.String(), nil
}

// WriteMarkdown renders r to path
func (rd *Renderer) WriteMarkdown(r Review, path string) error {
	return writeFile(path, rd.Markdown(r))
}

// WriteHTML renders r as HTML to path
func (rd *Renderer) WriteHTML(r Review, path string) error {
	html, err := rd.HTML(r)
	if err != nil {
		return err
	}
	return writeFile(path, html)
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// escape keeps claim text from being read as Markdown syntax
func escape(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	replacer := strings.NewReplacer(
		`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
	)
	return replacer.Replace(s)
}
