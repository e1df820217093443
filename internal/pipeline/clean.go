package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	cdataPattern      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Cleaner turns feed markup into plain text
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner creates a cleaner that drops every tag
func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

// Text strips CDATA wrappers and markup, decodes entities and collapses whitespace
func (c *Cleaner) Text(s string) string {
	s = cdataPattern.ReplaceAllString(s, "$1")
	s = c.policy.Sanitize(s)
	// StrictPolicy escapes what it keeps; decode twice for double-encoded feeds
	s = html.UnescapeString(html.UnescapeString(s))
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most max runes without splitting a UTF-8 sequence
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
