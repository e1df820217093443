package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

var fixedNow = time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s := New(mock)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(mock.Close)
	return s, mock
}

var claimCols = []string{"id", "true_claim", "false_claim", "explanation", "source", "date", "times_shown", "times_reported", "origin", "created_at"}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS claim_pairs_approved").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertClaims(t *testing.T) {
	s, mock := newMockStore(t)
	date := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	in := []model.PublishedClaim{
		{TrueClaim: "Fed holds rates at 4.5%", FalseClaim: "Fed raises rates to 5%", Explanation: "Rates were held.", Source: "NPR", Date: date, TimesShown: 9},
		{ID: "fixed-id", TrueClaim: "Senate passes bill 52-48", FalseClaim: "Senate passes bill 61-39", Explanation: "Vote was 52-48.", Source: "BBC", Date: date},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claim_pairs_approved").
		WithArgs(pgxmock.AnyArg(), in[0].TrueClaim, in[0].FalseClaim, in[0].Explanation, "NPR", date, "pipeline", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO claim_pairs_approved").
		WithArgs("fixed-id", in[1].TrueClaim, in[1].FalseClaim, in[1].Explanation, "BBC", date, "pipeline", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	out, err := s.InsertClaims(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEmpty(t, out[0].ID)
	assert.Equal(t, "fixed-id", out[1].ID)
	assert.Zero(t, out[0].TimesShown)
	assert.Equal(t, 9, in[0].TimesShown, "input must not be modified")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertClaimsRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	in := []model.PublishedClaim{{TrueClaim: "a", FalseClaim: "b", Source: "NPR", Date: fixedNow}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claim_pairs_approved").
		WithArgs(pgxmock.AnyArg(), "a", "b", "", "NPR", fixedNow, "pipeline", fixedNow).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.InsertClaims(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	out, err := s.InsertDrafts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClaim(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM claim_pairs_approved WHERE id").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows(claimCols).
			AddRow("c1", "t", "f", "e", "NPR", fixedNow, 3, 1, "pipeline", fixedNow))

	c, err := s.GetClaim(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 3, c.TimesShown)
	assert.Equal(t, model.OriginPipeline, c.Origin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClaimNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM claim_pairs_approved WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(claimCols))

	_, err := s.GetClaim(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectLowExposureApproved(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("ORDER BY times_shown ASC, random").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(claimCols).
			AddRow("a", "t", "f", "e", "NPR", fixedNow, 0, 0, "pipeline", fixedNow).
			AddRow("b", "t", "f", "e", "BBC", fixedNow, 1, 0, "manual", fixedNow))

	claims, err := s.SelectLowExposureApproved(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, model.OriginManual, claims[1].Origin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectReportedClampsMinimum(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("WHERE times_reported >= ").
		WithArgs(1, 5).
		WillReturnRows(pgxmock.NewRows(claimCols).
			AddRow("a", "t", "f", "e", "NPR", fixedNow, 4, 3, "pipeline", fixedNow))

	claims, err := s.SelectReported(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, 3, claims[0].TimesReported)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementShown(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE claim_pairs_approved SET times_shown").
		WithArgs("a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE claim_pairs_approved SET times_shown").
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.IncrementShown(context.Background(), "a"))
	assert.ErrorIs(t, s.IncrementShown(context.Background(), "gone"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementReportedError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE claim_pairs_approved SET times_reported").
		WithArgs("a").
		WillReturnError(errors.New("boom"))

	err := s.IncrementReported(context.Background(), "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteManual(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM claim_pairs_approved WHERE origin").
		WithArgs("manual").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteManual(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"approved", "reported", "drafts"}).AddRow(12, 2, 5))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Approved: 12, Reported: 2, Drafts: 5}, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveDraft(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM claim_pairs_draft WHERE id").
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "true_claim", "false_claim", "explanation", "source", "date", "origin", "created_at"}).
			AddRow("d1", "t", "f", "e", "NPR", fixedNow, "pipeline", fixedNow))
	mock.ExpectExec("INSERT INTO claim_pairs_approved").
		WithArgs("d1", "t", "f", "e", "NPR", fixedNow, "pipeline", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM claim_pairs_draft").
		WithArgs("d1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	c, err := s.ApproveDraft(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveDraftMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM claim_pairs_draft WHERE id").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "true_claim", "false_claim", "explanation", "source", "date", "origin", "created_at"}))
	mock.ExpectRollback()

	_, err := s.ApproveDraft(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAnswer(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("s1", "c1", "true", true, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordAnswer(context.Background(), model.Answer{SessionID: "s1", ClaimID: "c1", Selected: model.ChoiceTrue, IsCorrect: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionAnswers(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM user_sessions WHERE session_id").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"session_id", "claim_id", "selected_claim", "is_correct", "created_at"}).
			AddRow("s1", "c1", "true", true, fixedNow).
			AddRow("s1", "c2", "false", false, fixedNow.Add(time.Minute)))

	answers, err := s.SessionAnswers(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, model.ChoiceFalse, answers[1].Selected)
	assert.False(t, answers[1].IsCorrect)
	require.NoError(t, mock.ExpectationsWereMet())
}
