// Package api serves the game, admin and run-trigger endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

var (
	ErrNoRunner      = errors.New("pipeline not configured")
	ErrRunInProgress = errors.New("a run is already in progress")
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context) (model.RunSummary, error)
}

// Server wires handlers to a store and a pipeline runner
type Server struct {
	echo   *echo.Echo
	store  store.Store
	runner Runner
	cfg    model.ServerConfig
	log    *logging.Logger
	runMu  sync.Mutex
}

// New creates a server. runner may be nil, which disables the run trigger.
func New(st store.Store, runner Runner, cfg model.ServerConfig, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, store: st, runner: runner, cfg: cfg, log: log.Component("api")}

	e.Use(middleware.Recover())
	e.Use(RequestLogger(s.log))

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	game := e.Group("/api")
	game.GET("/claims", s.listClaims)
	game.POST("/claims/:id/shown", s.markShown)
	game.POST("/claims/:id/report", s.reportClaim)
	game.POST("/sessions", s.createSession)
	game.POST("/sessions/:id/answers", s.recordAnswer)
	game.GET("/sessions/:id/stats", s.sessionStats)

	cron := e.Group("/api/cron", SharedSecret(cfg.CronSecret))
	cron.GET("/daily-generate", s.dailyGenerate)
	cron.POST("/daily-generate", s.dailyGenerate)

	admin := e.Group("/api/admin", SharedSecret(cfg.CronSecret))
	admin.GET("/reported", s.listReported)
	admin.GET("/stats", s.stats)
	admin.DELETE("/claims/manual", s.purgeManual)
	admin.DELETE("/claims/:id", s.deleteClaim)
	admin.POST("/claims/:id/clear-reports", s.clearReports)
	admin.GET("/drafts", s.listDrafts)
	admin.POST("/drafts/:id/approve", s.approveDraft)
	admin.DELETE("/drafts/:id", s.rejectDraft)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Trigger runs the pipeline unless a run is already in flight. The HTTP
// trigger and the scheduler both go through here.
func (s *Server) Trigger(ctx context.Context) (model.RunSummary, error) {
	if s.runner == nil {
		return model.RunSummary{}, ErrNoRunner
	}
	if !s.runMu.TryLock() {
		return model.RunSummary{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("run failed", "error", err)
		return summary, err
	}
	s.log.Info("run finished", "articles", summary.ArticlesFetched, "claims", summary.ClaimsPublished)
	return summary, nil
}

// storeError maps store failures onto HTTP errors
func storeError(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("%s: %v", op, err))
}
