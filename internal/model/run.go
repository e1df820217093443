package model

import "time"

// RunSummary reports what one pipeline run produced
type RunSummary struct {
	ArticlesFetched   int           `json:"articles"`
	ArticlesProcessed int           `json:"articles_processed"`
	FactsExtracted    int           `json:"facts_extracted"`
	Candidates        int           `json:"candidates"`
	Rejected          int           `json:"rejected"`
	ClaimsPublished   int           `json:"claims"`
	Destination       string        `json:"destination"` // "approved" or "drafts"
	GuidanceUsed      bool          `json:"guidance_used"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration_ns"`
}
