package model

import (
	"strings"
	"time"
)

// ClaimOrigin records how a published claim entered the game
type ClaimOrigin string

const (
	OriginPipeline ClaimOrigin = "pipeline" // Generated by a pipeline run
	OriginManual   ClaimOrigin = "manual"   // Entered by hand with "claims add"
)

// ExtractedFact is a headline fact pulled out of one article
type ExtractedFact struct {
	Statement string `json:"fact"`    // Short factual statement
	Context   string `json:"context"` // Why it matters / supporting context
}

// CandidateClaimPair is a synthesized true/false pair awaiting validation
type CandidateClaimPair struct {
	TrueClaim   string    `json:"true_claim"`
	FalseClaim  string    `json:"false_claim"`
	Explanation string    `json:"explanation"`
	Source      string    `json:"source"`
	Date        time.Time `json:"date"`
}

// PublishedClaim is a persisted, playable claim pair
type PublishedClaim struct {
	ID            string      `json:"id"`
	TrueClaim     string      `json:"true_claim"`
	FalseClaim    string      `json:"false_claim"`
	Explanation   string      `json:"explanation"`
	Source        string      `json:"source"`
	Date          time.Time   `json:"date"`
	TimesShown    int         `json:"times_shown"`
	TimesReported int         `json:"times_reported"`
	Origin        ClaimOrigin `json:"origin,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
}

// Publish converts a validated candidate into a claim record ready for insertion.
// Counters start at zero; the store assigns the ID when empty.
func (c CandidateClaimPair) Publish(now time.Time) PublishedClaim {
	return PublishedClaim{
		TrueClaim:   strings.TrimSpace(c.TrueClaim),
		FalseClaim:  strings.TrimSpace(c.FalseClaim),
		Explanation: strings.TrimSpace(c.Explanation),
		Source:      c.Source,
		Date:        c.Date,
		Origin:      OriginPipeline,
		CreatedAt:   now.UTC(),
	}
}

// DateString formats a claim date the way the game displays and stores it
func DateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
