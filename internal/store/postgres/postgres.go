// Package postgres implements store.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

// DB is the subset of *pgxpool.Pool the store uses
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store persists claims in PostgreSQL
type Store struct {
	pool DB
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects a pool to dsn and verifies it
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool
func New(pool DB) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS claim_pairs_approved (
	id TEXT PRIMARY KEY,
	true_claim TEXT NOT NULL,
	false_claim TEXT NOT NULL,
	explanation TEXT NOT NULL,
	source TEXT NOT NULL,
	date DATE NOT NULL,
	times_shown INTEGER NOT NULL DEFAULT 0 CHECK (times_shown >= 0),
	times_reported INTEGER NOT NULL DEFAULT 0 CHECK (times_reported >= 0),
	origin TEXT NOT NULL DEFAULT 'pipeline',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_approved_times_shown ON claim_pairs_approved (times_shown);
CREATE INDEX IF NOT EXISTS idx_approved_times_reported ON claim_pairs_approved (times_reported) WHERE times_reported > 0;

CREATE TABLE IF NOT EXISTS claim_pairs_draft (
	id TEXT PRIMARY KEY,
	true_claim TEXT NOT NULL,
	false_claim TEXT NOT NULL,
	explanation TEXT NOT NULL,
	source TEXT NOT NULL,
	date DATE NOT NULL,
	origin TEXT NOT NULL DEFAULT 'pipeline',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_sessions (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	claim_id TEXT NOT NULL,
	selected_claim TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON user_sessions (session_id);
`

// Migrate creates tables and indexes if missing
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const claimColumns = "id, true_claim, false_claim, explanation, source, date, times_shown, times_reported, origin, created_at"
const draftColumns = "id, true_claim, false_claim, explanation, source, date, origin, created_at"

func scanClaim(row pgx.Row) (model.PublishedClaim, error) {
	var c model.PublishedClaim
	var origin string
	err := row.Scan(&c.ID, &c.TrueClaim, &c.FalseClaim, &c.Explanation, &c.Source, &c.Date,
		&c.TimesShown, &c.TimesReported, &origin, &c.CreatedAt)
	c.Origin = model.ClaimOrigin(origin)
	return c, err
}

func scanDraft(row pgx.Row) (model.PublishedClaim, error) {
	var c model.PublishedClaim
	var origin string
	err := row.Scan(&c.ID, &c.TrueClaim, &c.FalseClaim, &c.Explanation, &c.Source, &c.Date, &origin, &c.CreatedAt)
	c.Origin = model.ClaimOrigin(origin)
	return c, err
}

func collect(rows pgx.Rows, scan func(pgx.Row) (model.PublishedClaim, error)) ([]model.PublishedClaim, error) {
	defer rows.Close()
	var out []model.PublishedClaim
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

// insertAll writes claims into table inside one transaction
func (s *Store) insertAll(ctx context.Context, table string, claims []model.PublishedClaim, withCounters bool) ([]model.PublishedClaim, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	prepared := store.Prepare(claims, s.now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	query := "INSERT INTO " + table + " (" + draftColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	if withCounters {
		query = "INSERT INTO " + table + " (" + claimColumns + ") VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8)"
	}
	for _, c := range prepared {
		if _, err := tx.Exec(ctx, query, c.ID, c.TrueClaim, c.FalseClaim, c.Explanation, c.Source, c.Date, string(c.Origin), c.CreatedAt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prepared, nil
}

func (s *Store) InsertClaims(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error) {
	return s.insertAll(ctx, store.TableApproved, claims, true)
}

func (s *Store) GetClaim(ctx context.Context, id string) (model.PublishedClaim, error) {
	c, err := scanClaim(s.pool.QueryRow(ctx, "SELECT "+claimColumns+" FROM claim_pairs_approved WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PublishedClaim{}, store.ErrNotFound
	}
	if err != nil {
		return model.PublishedClaim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

// SelectLowExposureApproved returns the least-shown claims, ties broken randomly
func (s *Store) SelectLowExposureApproved(ctx context.Context, limit int) ([]model.PublishedClaim, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+claimColumns+" FROM claim_pairs_approved ORDER BY times_shown ASC, random() LIMIT $1",
		store.ClampLimit(limit, 10, 100))
	if err != nil {
		return nil, fmt.Errorf("select approved: %w", err)
	}
	return collect(rows, scanClaim)
}

func (s *Store) SelectReported(ctx context.Context, minReportCount, limit int) ([]model.PublishedClaim, error) {
	if minReportCount < 1 {
		minReportCount = 1
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+claimColumns+" FROM claim_pairs_approved WHERE times_reported >= $1 ORDER BY times_reported DESC, created_at DESC LIMIT $2",
		minReportCount, store.ClampLimit(limit, 20, 500))
	if err != nil {
		return nil, fmt.Errorf("select reported: %w", err)
	}
	return collect(rows, scanClaim)
}

// execOne runs a single-row statement and maps zero affected rows to ErrNotFound
func (s *Store) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementShown(ctx context.Context, id string) error {
	return s.execOne(ctx, "increment shown", "UPDATE claim_pairs_approved SET times_shown = times_shown + 1 WHERE id = $1", id)
}

func (s *Store) IncrementReported(ctx context.Context, id string) error {
	return s.execOne(ctx, "increment reported", "UPDATE claim_pairs_approved SET times_reported = times_reported + 1 WHERE id = $1", id)
}

func (s *Store) ClearReportCount(ctx context.Context, id string) error {
	return s.execOne(ctx, "clear reports", "UPDATE claim_pairs_approved SET times_reported = 0 WHERE id = $1", id)
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete claim", "DELETE FROM claim_pairs_approved WHERE id = $1", id)
}

// DeleteManual removes claims entered by hand before the pipeline existed
func (s *Store) DeleteManual(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM claim_pairs_approved WHERE origin = $1", string(model.OriginManual))
	if err != nil {
		return 0, fmt.Errorf("delete manual claims: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM claim_pairs_approved),
		(SELECT COUNT(*) FROM claim_pairs_approved WHERE times_reported > 0),
		(SELECT COUNT(*) FROM claim_pairs_draft)`).Scan(&st.Approved, &st.Reported, &st.Drafts)
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

func (s *Store) InsertDrafts(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error) {
	return s.insertAll(ctx, store.TableDrafts, claims, false)
}

func (s *Store) ListDrafts(ctx context.Context, limit int) ([]model.PublishedClaim, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+draftColumns+" FROM claim_pairs_draft ORDER BY created_at DESC LIMIT $1",
		store.ClampLimit(limit, 50, 500))
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return collect(rows, scanDraft)
}

// ApproveDraft moves a draft into the approved table in one transaction
func (s *Store) ApproveDraft(ctx context.Context, id string) (model.PublishedClaim, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.PublishedClaim{}, fmt.Errorf("begin: %w", err)
	}

	draft, err := scanDraft(tx.QueryRow(ctx, "SELECT "+draftColumns+" FROM claim_pairs_draft WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PublishedClaim{}, store.ErrNotFound
		}
		return model.PublishedClaim{}, fmt.Errorf("load draft: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO claim_pairs_approved ("+claimColumns+") VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8)",
		draft.ID, draft.TrueClaim, draft.FalseClaim, draft.Explanation, draft.Source, draft.Date, string(draft.Origin), draft.CreatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return model.PublishedClaim{}, fmt.Errorf("insert approved: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM claim_pairs_draft WHERE id = $1", id); err != nil {
		_ = tx.Rollback(ctx)
		return model.PublishedClaim{}, fmt.Errorf("delete draft: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.PublishedClaim{}, fmt.Errorf("commit: %w", err)
	}
	return draft, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete draft", "DELETE FROM claim_pairs_draft WHERE id = $1", id)
}

func (s *Store) RecordAnswer(ctx context.Context, a model.Answer) error {
	if a.AnsweredAt.IsZero() {
		a.AnsweredAt = s.now()
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO user_sessions (session_id, claim_id, selected_claim, is_correct, created_at) VALUES ($1, $2, $3, $4, $5)",
		a.SessionID, a.ClaimID, string(a.Selected), a.IsCorrect, a.AnsweredAt.UTC())
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *Store) SessionAnswers(ctx context.Context, sessionID string) ([]model.Answer, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT session_id, claim_id, selected_claim, is_correct, created_at FROM user_sessions WHERE session_id = $1 ORDER BY created_at, id",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session answers: %w", err)
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		var a model.Answer
		var selected string
		if err := rows.Scan(&a.SessionID, &a.ClaimID, &selected, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Selected = model.Choice(selected)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}
