package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/score"
	"github.com/ppiankov/realitycheck/internal/store"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

// Game

func (s *Server) listClaims(c echo.Context) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}
	claims, err := s.store.SelectLowExposureApproved(c.Request().Context(), limit)
	if err != nil {
		return storeError(err, "select claims")
	}
	if claims == nil {
		claims = []model.PublishedClaim{}
	}
	return c.JSON(http.StatusOK, claims)
}

func (s *Server) markShown(c echo.Context) error {
	if err := s.store.IncrementShown(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "increment shown")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) reportClaim(c echo.Context) error {
	if err := s.store.IncrementReported(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "report claim")
	}
	s.log.Info("claim reported", "claim_id", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]string{"session_id": store.NewID()})
}

type answerRequest struct {
	ClaimID  string       `json:"claim_id"`
	Selected model.Choice `json:"selected_claim"`
}

type answerResponse struct {
	IsCorrect   bool   `json:"is_correct"`
	TrueClaim   string `json:"true_claim"`
	Explanation string `json:"explanation"`
}

func (s *Server) recordAnswer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ClaimID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "claim_id is required")
	}
	correct, err := score.Grade(req.Selected)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	claim, err := s.store.GetClaim(ctx, req.ClaimID)
	if err != nil {
		return storeError(err, "get claim")
	}

	answer := model.Answer{
		SessionID: c.Param("id"),
		ClaimID:   req.ClaimID,
		Selected:  req.Selected,
		IsCorrect: correct,
	}
	if err := s.store.RecordAnswer(ctx, answer); err != nil {
		return storeError(err, "record answer")
	}

	return c.JSON(http.StatusCreated, answerResponse{
		IsCorrect:   correct,
		TrueClaim:   claim.TrueClaim,
		Explanation: claim.Explanation,
	})
}

func (s *Server) sessionStats(c echo.Context) error {
	sessionID := c.Param("id")
	answers, err := s.store.SessionAnswers(c.Request().Context(), sessionID)
	if err != nil {
		return storeError(err, "session answers")
	}
	stats := score.Summarize(sessionID, answers)
	return c.JSON(http.StatusOK, sessionStatsResponse{SessionStats: stats, Rating: score.Rating(stats)})
}

type sessionStatsResponse struct {
	model.SessionStats
	Rating string `json:"rating"`
}

// Run trigger

type runResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	*model.RunSummary
}

func (s *Server) dailyGenerate(c echo.Context) error {
	summary, err := s.Trigger(c.Request().Context())
	switch {
	case errors.Is(err, ErrNoRunner):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrRunInProgress):
		return c.JSON(http.StatusConflict, runResponse{Success: false, Error: err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, runResponse{Success: false, Error: err.Error()})
	case summary.ArticlesFetched == 0:
		return c.JSON(http.StatusOK, runResponse{Success: false, Message: "No articles found"})
	}
	return c.JSON(http.StatusOK, runResponse{Success: true, RunSummary: &summary})
}

// Admin

func (s *Server) listReported(c echo.Context) error {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		return err
	}
	claims, err := s.store.SelectReported(c.Request().Context(), 1, limit)
	if err != nil {
		return storeError(err, "select reported")
	}
	if claims == nil {
		claims = []model.PublishedClaim{}
	}
	return c.JSON(http.StatusOK, claims)
}

func (s *Server) stats(c echo.Context) error {
	st, err := s.store.Stats(c.Request().Context())
	if err != nil {
		return storeError(err, "stats")
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) deleteClaim(c echo.Context) error {
	if err := s.store.DeleteByID(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "delete claim")
	}
	s.log.Info("claim deleted", "claim_id", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearReports(c echo.Context) error {
	if err := s.store.ClearReportCount(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "clear reports")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) purgeManual(c echo.Context) error {
	n, err := s.store.DeleteManual(c.Request().Context())
	if err != nil {
		return storeError(err, "delete manual claims")
	}
	s.log.Info("manual claims purged", "deleted", n)
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) listDrafts(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	drafts, err := s.store.ListDrafts(c.Request().Context(), limit)
	if err != nil {
		return storeError(err, "list drafts")
	}
	if drafts == nil {
		drafts = []model.PublishedClaim{}
	}
	return c.JSON(http.StatusOK, drafts)
}

func (s *Server) approveDraft(c echo.Context) error {
	claim, err := s.store.ApproveDraft(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "approve draft")
	}
	return c.JSON(http.StatusOK, claim)
}

func (s *Server) rejectDraft(c echo.Context) error {
	if err := s.store.DeleteDraft(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "reject draft")
	}
	return c.NoContent(http.StatusNoContent)
}
