// Package store defines the persistence boundary for claims, drafts and
// player sessions. Backends live in the postgres and sqlite subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/realitycheck/internal/model"
)

// ErrNotFound is returned when an id matches no row
var ErrNotFound = errors.New("not found")

// Table names shared by every backend
const (
	TableApproved = "claim_pairs_approved"
	TableDrafts   = "claim_pairs_draft"
	TableSessions = "user_sessions"
)

// ClaimStore holds published, playable claims
type ClaimStore interface {
	InsertClaims(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error)
	GetClaim(ctx context.Context, id string) (model.PublishedClaim, error)
	SelectLowExposureApproved(ctx context.Context, limit int) ([]model.PublishedClaim, error)
	SelectReported(ctx context.Context, minReportCount, limit int) ([]model.PublishedClaim, error)
	IncrementShown(ctx context.Context, id string) error
	IncrementReported(ctx context.Context, id string) error
	DeleteByID(ctx context.Context, id string) error
	ClearReportCount(ctx context.Context, id string) error
	DeleteManual(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// DraftStore holds generated pairs awaiting review
type DraftStore interface {
	InsertDrafts(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error)
	ListDrafts(ctx context.Context, limit int) ([]model.PublishedClaim, error)
	ApproveDraft(ctx context.Context, id string) (model.PublishedClaim, error)
	DeleteDraft(ctx context.Context, id string) error
}

// SessionStore records player answers
type SessionStore interface {
	RecordAnswer(ctx context.Context, answer model.Answer) error
	SessionAnswers(ctx context.Context, sessionID string) ([]model.Answer, error)
}

// Store is a complete backend
type Store interface {
	ClaimStore
	DraftStore
	SessionStore
	Migrate(ctx context.Context) error
	Close() error
}

// Stats summarizes table sizes for the admin view
type Stats struct {
	Approved int `json:"approved"`
	Reported int `json:"reported"`
	Drafts   int `json:"drafts"`
}

// NewID returns a fresh claim or session identifier
func NewID() string {
	return uuid.NewString()
}

// Prepare fills the fields a backend assigns on insert. A missing date falls
// back to the creation time.
// Counters are reset so inserts always start at zero.
func Prepare(claims []model.PublishedClaim, now time.Time) []model.PublishedClaim {
	out := make([]model.PublishedClaim, len(claims))
	for i, c := range claims {
		if c.ID == "" {
			c.ID = NewID()
		}
		if c.Origin == "" {
			c.Origin = model.OriginPipeline
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now.UTC()
		}
		if c.Date.IsZero() {
			c.Date = c.CreatedAt
		}
		c.TimesShown = 0
		c.TimesReported = 0
		out[i] = c
	}
	return out
}

// ClampLimit bounds a caller-supplied limit
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
