package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func pair(trueClaim, source string) model.PublishedClaim {
	return model.PublishedClaim{
		TrueClaim:   trueClaim,
		FalseClaim:  "not " + trueClaim,
		Explanation: "because",
		Source:      source,
		Date:        time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestInsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.InsertClaims(ctx, []model.PublishedClaim{pair("Fed holds rates at 4.5%", "NPR")})
	if err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}
	if len(out) != 1 || out[0].ID == "" {
		t.Fatalf("expected one claim with id, got %+v", out)
	}

	got, err := s.GetClaim(ctx, out[0].ID)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if got.TrueClaim != "Fed holds rates at 4.5%" || got.Source != "NPR" {
		t.Errorf("unexpected claim: %+v", got)
	}
	if model.DateString(got.Date) != "2025-03-13" {
		t.Errorf("date = %s", model.DateString(got.Date))
	}
	if got.Origin != model.OriginPipeline {
		t.Errorf("origin = %q", got.Origin)
	}

	if _, err := s.GetClaim(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertRollsBackOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := pair("one", "NPR")
	a.ID = "dup"
	b := pair("two", "BBC")
	b.ID = "dup"
	if _, err := s.InsertClaims(ctx, []model.PublishedClaim{a, b}); err == nil {
		t.Fatal("expected primary key conflict")
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Approved != 0 {
		t.Errorf("partial batch was persisted: %+v", st)
	}
}

func TestCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.InsertClaims(ctx, []model.PublishedClaim{pair("a claim", "NPR"), pair("b claim", "BBC")})
	if err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}
	id := out[0].ID

	for i := 0; i < 3; i++ {
		if err := s.IncrementShown(ctx, id); err != nil {
			t.Fatalf("IncrementShown: %v", err)
		}
	}
	if err := s.IncrementReported(ctx, id); err != nil {
		t.Fatalf("IncrementReported: %v", err)
	}
	if err := s.IncrementShown(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.GetClaim(ctx, id)
	if got.TimesShown != 3 || got.TimesReported != 1 {
		t.Errorf("counters = %d/%d", got.TimesShown, got.TimesReported)
	}

	low, err := s.SelectLowExposureApproved(ctx, 1)
	if err != nil {
		t.Fatalf("SelectLowExposureApproved: %v", err)
	}
	if len(low) != 1 || low[0].ID != out[1].ID {
		t.Errorf("expected least-shown claim first, got %+v", low)
	}

	reported, err := s.SelectReported(ctx, 1, 10)
	if err != nil {
		t.Fatalf("SelectReported: %v", err)
	}
	if len(reported) != 1 || reported[0].ID != id {
		t.Errorf("reported = %+v", reported)
	}

	if err := s.ClearReportCount(ctx, id); err != nil {
		t.Fatalf("ClearReportCount: %v", err)
	}
	reported, _ = s.SelectReported(ctx, 1, 10)
	if len(reported) != 0 {
		t.Errorf("expected no reported claims after clear, got %d", len(reported))
	}
}

func TestDeleteManual(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	manual := pair("manual claim", "Seed")
	manual.Origin = model.OriginManual
	out, err := s.InsertClaims(ctx, []model.PublishedClaim{manual, pair("generated", "NPR")})
	if err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}

	n, err := s.DeleteManual(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteManual = %d, %v", n, err)
	}
	if err := s.DeleteByID(ctx, out[1].ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := s.DeleteByID(ctx, out[1].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestDraftLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	drafts, err := s.InsertDrafts(ctx, []model.PublishedClaim{pair("draft one", "NPR"), pair("draft two", "BBC")})
	if err != nil {
		t.Fatalf("InsertDrafts: %v", err)
	}

	listed, err := s.ListDrafts(ctx, 0)
	if err != nil || len(listed) != 2 {
		t.Fatalf("ListDrafts = %d, %v", len(listed), err)
	}

	approved, err := s.ApproveDraft(ctx, drafts[0].ID)
	if err != nil {
		t.Fatalf("ApproveDraft: %v", err)
	}
	if approved.ID != drafts[0].ID {
		t.Errorf("approved id = %s", approved.ID)
	}
	if _, err := s.GetClaim(ctx, drafts[0].ID); err != nil {
		t.Errorf("approved claim not found: %v", err)
	}
	if _, err := s.ApproveDraft(ctx, drafts[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("re-approve: %v", err)
	}

	if err := s.DeleteDraft(ctx, drafts[1].ID); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}

	st, _ := s.Stats(ctx)
	if st != (store.Stats{Approved: 1, Reported: 0, Drafts: 0}) {
		t.Errorf("stats = %+v", st)
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	answers := []model.Answer{
		{SessionID: "s1", ClaimID: "c1", Selected: model.ChoiceTrue, IsCorrect: true, AnsweredAt: base},
		{SessionID: "s1", ClaimID: "c2", Selected: model.ChoiceFalse, IsCorrect: false, AnsweredAt: base.Add(time.Minute)},
		{SessionID: "s2", ClaimID: "c1", Selected: model.ChoiceTrue, IsCorrect: true, AnsweredAt: base},
	}
	for _, a := range answers {
		if err := s.RecordAnswer(ctx, a); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
	}

	got, err := s.SessionAnswers(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionAnswers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got))
	}
	if got[0].ClaimID != "c1" || !got[0].IsCorrect || got[1].Selected != model.ChoiceFalse {
		t.Errorf("unexpected answers: %+v", got)
	}
	if !got[1].AnsweredAt.Equal(base.Add(time.Minute)) {
		t.Errorf("answered_at = %v", got[1].AnsweredAt)
	}
}
