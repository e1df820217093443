package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/realitycheck/internal/model"
)

// Rule names the acceptance rule that rejected a candidate
type Rule string

const (
	RuleLength       Rule = "min_length"
	RuleBannedPhrase Rule = "banned_phrase"
	RuleStructural   Rule = "structural"
	RuleIdentical    Rule = "identical"
	RuleDuplicate    Rule = "duplicate"
)

// Rejection explains why a candidate was not promoted
type Rejection struct {
	Rule   Rule
	Detail string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
}

// categoryLabel matches a leading all-caps label followed by a colon ("BREAKING:", "WORLD NEWS:")
var categoryLabel = regexp.MustCompile(`^\s*[A-Z][A-Z0-9&'/\-]*(?:\s+[A-Z0-9&'/\-]+)*\s*:`)

// Validator applies local acceptance rules to candidate pairs.
// It holds only configuration; Check is a pure function of its arguments.
type Validator struct {
	minLength int
	banned    []string
	category  []string
}

// NewValidator creates a validator from configuration
func NewValidator(cfg model.ValidationConfig) *Validator {
	minLength := cfg.MinClaimLength
	if minLength <= 0 {
		minLength = 20
	}
	banned := cfg.BannedPhrases
	if banned == nil {
		banned = model.DefaultBannedPhrases()
	}
	category := cfg.CategoryPhrases
	if category == nil {
		category = model.DefaultCategoryPhrases()
	}
	return &Validator{
		minLength: minLength,
		banned:    lowerAll(banned),
		category:  lowerAll(category),
	}
}

// Accept reports whether candidate may be promoted given the pairs already promoted in this run
func (v *Validator) Accept(candidate model.CandidateClaimPair, promoted []model.CandidateClaimPair) bool {
	return v.Check(candidate, promoted) == nil
}

// Check returns the first rule candidate violates, or nil. Rules run in order:
// length, banned phrase, structural pattern, identical pair, run duplicate.
func (v *Validator) Check(candidate model.CandidateClaimPair, promoted []model.CandidateClaimPair) *Rejection {
	trueClaim := strings.TrimSpace(candidate.TrueClaim)
	falseClaim := strings.TrimSpace(candidate.FalseClaim)

	if n := utf8.RuneCountInString(trueClaim); n < v.minLength {
		return &Rejection{Rule: RuleLength, Detail: fmt.Sprintf("true claim has %d chars, need %d", n, v.minLength)}
	}
	if n := utf8.RuneCountInString(falseClaim); n < v.minLength {
		return &Rejection{Rule: RuleLength, Detail: fmt.Sprintf("false claim has %d chars, need %d", n, v.minLength)}
	}

	for _, field := range []struct{ name, text string }{
		{"true claim", trueClaim},
		{"false claim", falseClaim},
		{"explanation", candidate.Explanation},
	} {
		if phrase := containsAny(field.text, v.banned); phrase != "" {
			return &Rejection{Rule: RuleBannedPhrase, Detail: fmt.Sprintf("%s contains %q", field.name, phrase)}
		}
	}

	for _, text := range []string{trueClaim, falseClaim} {
		if categoryLabel.MatchString(text) {
			return &Rejection{Rule: RuleStructural, Detail: fmt.Sprintf("category label in %q", text)}
		}
		if phrase := containsAny(text, v.category); phrase != "" {
			return &Rejection{Rule: RuleStructural, Detail: fmt.Sprintf("feed category phrase %q", phrase)}
		}
	}

	trueKey, falseKey := Normalize(trueClaim), Normalize(falseClaim)
	if trueKey == falseKey {
		return &Rejection{Rule: RuleIdentical, Detail: "true and false claims are the same"}
	}

	for _, p := range promoted {
		seen := []string{Normalize(p.TrueClaim), Normalize(p.FalseClaim)}
		for _, key := range []string{trueKey, falseKey} {
			if key == seen[0] || key == seen[1] {
				return &Rejection{Rule: RuleDuplicate, Detail: fmt.Sprintf("already promoted this run: %q", key)}
			}
		}
	}

	return nil
}

// Normalize is the comparison key for duplicate detection:
// lowercase, whitespace collapsed, trailing sentence punctuation dropped.
func Normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".!?")
}

func containsAny(text string, phrases []string) string {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
