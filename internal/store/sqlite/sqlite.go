// Package sqlite implements store.Store on an embedded SQLite file.
//
// Dates are stored as YYYY-MM-DD text and timestamps as RFC 3339 text so the
// file stays readable from the sqlite3 shell. The handle is limited to a
// single connection; SQLite serializes writers anyway.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"

	_ "modernc.org/sqlite" // Pure-Go driver
)

const dateLayout = "2006-01-02"

// Store persists claims in a SQLite database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS claim_pairs_approved (
	id TEXT PRIMARY KEY,
	true_claim TEXT NOT NULL,
	false_claim TEXT NOT NULL,
	explanation TEXT NOT NULL,
	source TEXT NOT NULL,
	date TEXT NOT NULL,
	times_shown INTEGER NOT NULL DEFAULT 0 CHECK (times_shown >= 0),
	times_reported INTEGER NOT NULL DEFAULT 0 CHECK (times_reported >= 0),
	origin TEXT NOT NULL DEFAULT 'pipeline',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approved_times_shown ON claim_pairs_approved(times_shown);
CREATE INDEX IF NOT EXISTS idx_approved_times_reported ON claim_pairs_approved(times_reported);

CREATE TABLE IF NOT EXISTS claim_pairs_draft (
	id TEXT PRIMARY KEY,
	true_claim TEXT NOT NULL,
	false_claim TEXT NOT NULL,
	explanation TEXT NOT NULL,
	source TEXT NOT NULL,
	date TEXT NOT NULL,
	origin TEXT NOT NULL DEFAULT 'pipeline',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	claim_id TEXT NOT NULL,
	selected_claim TEXT NOT NULL,
	is_correct INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON user_sessions(session_id);
`

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const claimColumns = "id, true_claim, false_claim, explanation, source, date, times_shown, times_reported, origin, created_at"
const draftColumns = "id, true_claim, false_claim, explanation, source, date, origin, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimes(c *model.PublishedClaim, date, created string) error {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", date, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return fmt.Errorf("parse created_at %q: %w", created, err)
	}
	c.Date = d
	c.CreatedAt = ts
	return nil
}

func scanClaim(row scanner) (model.PublishedClaim, error) {
	var c model.PublishedClaim
	var date, created, origin string
	if err := row.Scan(&c.ID, &c.TrueClaim, &c.FalseClaim, &c.Explanation, &c.Source, &date,
		&c.TimesShown, &c.TimesReported, &origin, &created); err != nil {
		return c, err
	}
	c.Origin = model.ClaimOrigin(origin)
	return c, parseTimes(&c, date, created)
}

func scanDraft(row scanner) (model.PublishedClaim, error) {
	var c model.PublishedClaim
	var date, created, origin string
	if err := row.Scan(&c.ID, &c.TrueClaim, &c.FalseClaim, &c.Explanation, &c.Source, &date, &origin, &created); err != nil {
		return c, err
	}
	c.Origin = model.ClaimOrigin(origin)
	return c, parseTimes(&c, date, created)
}

func collect(rows *sql.Rows, scan func(scanner) (model.PublishedClaim, error)) ([]model.PublishedClaim, error) {
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

func (s *Store) insertAll(ctx context.Context, table string, claims []model.PublishedClaim, withCounters bool) ([]model.PublishedClaim, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	prepared := store.Prepare(claims, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	query := "INSERT INTO " + table + " (" + draftColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if withCounters {
		query = "INSERT INTO " + table + " (" + claimColumns + ") VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)"
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range prepared {
		if _, err := stmt.ExecContext(ctx, c.ID, c.TrueClaim, c.FalseClaim, c.Explanation, c.Source,
			model.DateString(c.Date), string(c.Origin), formatTime(c.CreatedAt)); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prepared, nil
}

func (s *Store) InsertClaims(ctx context.Context, claims []model.PublishedClaim) ([]model.PublishedClaim, error) {
	return s.insertAll(ctx, store.TableApproved, claims, true)
}

func (s *Store) GetClaim(ctx context.Context, id string) (model.PublishedClaim, error) {
	c, err := scanClaim(s.db.QueryRowContext(ctx, "SELECT "+claimColumns+" FROM claim_pairs_approved WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PublishedClaim{}, store.ErrNotFound
	}
	if err != nil {
		return model.PublishedClaim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

func (s *Store) SelectLowExposureApproved(ctx context.Context, limit int) ([]model.PublishedClaim, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+claimColumns+" FROM claim_pairs_approved ORDER BY times_shown ASC, RANDOM() LIMIT ?",
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
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+claimColumns+" FROM claim_pairs_approved WHERE times_reported >= ? ORDER BY times_reported DESC, created_at DESC LIMIT ?",
		minReportCount, store.ClampLimit(limit, 20, 500))
	if err != nil {
		return nil, fmt.Errorf("select reported: %w", err)
	}
	return collect(rows, scanClaim)
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementShown(ctx context.Context, id string) error {
	return s.execOne(ctx, "increment shown", "UPDATE claim_pairs_approved SET times_shown = times_shown + 1 WHERE id = ?", id)
}

func (s *Store) IncrementReported(ctx context.Context, id string) error {
	return s.execOne(ctx, "increment reported", "UPDATE claim_pairs_approved SET times_reported = times_reported + 1 WHERE id = ?", id)
}

func (s *Store) ClearReportCount(ctx context.Context, id string) error {
	return s.execOne(ctx, "clear reports", "UPDATE claim_pairs_approved SET times_reported = 0 WHERE id = ?", id)
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete claim", "DELETE FROM claim_pairs_approved WHERE id = ?", id)
}

func (s *Store) DeleteManual(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM claim_pairs_approved WHERE origin = ?", string(model.OriginManual))
	if err != nil {
		return 0, fmt.Errorf("delete manual claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete manual claims: %w", err)
	}
	return int(n), nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
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
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+draftColumns+" FROM claim_pairs_draft ORDER BY created_at DESC LIMIT ?",
		store.ClampLimit(limit, 50, 500))
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return collect(rows, scanDraft)
}

func (s *Store) ApproveDraft(ctx context.Context, id string) (model.PublishedClaim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PublishedClaim{}, fmt.Errorf("begin: %w", err)
	}

	draft, err := scanDraft(tx.QueryRowContext(ctx, "SELECT "+draftColumns+" FROM claim_pairs_draft WHERE id = ?", id))
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return model.PublishedClaim{}, store.ErrNotFound
		}
		return model.PublishedClaim{}, fmt.Errorf("load draft: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO claim_pairs_approved ("+claimColumns+") VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)",
		draft.ID, draft.TrueClaim, draft.FalseClaim, draft.Explanation, draft.Source,
		model.DateString(draft.Date), string(draft.Origin), formatTime(draft.CreatedAt)); err != nil {
		tx.Rollback()
		return model.PublishedClaim{}, fmt.Errorf("insert approved: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM claim_pairs_draft WHERE id = ?", id); err != nil {
		tx.Rollback()
		return model.PublishedClaim{}, fmt.Errorf("delete draft: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.PublishedClaim{}, fmt.Errorf("commit: %w", err)
	}
	return draft, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete draft", "DELETE FROM claim_pairs_draft WHERE id = ?", id)
}

func (s *Store) RecordAnswer(ctx context.Context, a model.Answer) error {
	if a.AnsweredAt.IsZero() {
		a.AnsweredAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_sessions (session_id, claim_id, selected_claim, is_correct, created_at) VALUES (?, ?, ?, ?, ?)",
		a.SessionID, a.ClaimID, string(a.Selected), a.IsCorrect, formatTime(a.AnsweredAt))
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *Store) SessionAnswers(ctx context.Context, sessionID string) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, claim_id, selected_claim, is_correct, created_at FROM user_sessions WHERE session_id = ? ORDER BY created_at, id",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session answers: %w", err)
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		var a model.Answer
		var selected, created string
		if err := rows.Scan(&a.SessionID, &a.ClaimID, &selected, &a.IsCorrect, &created); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse answered_at %q: %w", created, err)
		}
		a.Selected = model.Choice(selected)
		a.AnsweredAt = ts
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}
