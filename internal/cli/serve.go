package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/api"
	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/model"
)

var (
	serveAddr     string
	serveSchedule bool
	serveNoCache  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game API and the daily generation trigger",
	Long: `Start the HTTP API used by the game client.

The daily run can be triggered by an external scheduler through
/api/cron/daily-generate (protected by server.cron_secret) or by the
in-process schedule (--schedule, schedule.spec). Overlapping runs are
rejected. When the generator is not configured the game endpoints still
serve stored claims.

Examples:
  realitycheck serve
  realitycheck serve --addr :9090 --schedule`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "run the pipeline on schedule.spec in-process")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "bypass the response cache")
}

// timedRunner bounds every run by the configured run timeout
type timedRunner struct {
	runner  api.Runner
	seconds int
}

func (r timedRunner) Run(ctx context.Context) (model.RunSummary, error) {
	ctx, cancel := withRunTimeout(ctx, r.seconds)
	defer cancel()
	return r.runner.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("schedule") {
		cfg.Schedule.Enabled = serveSchedule
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	var runner api.Runner
	if err := cfg.Validate(); err != nil {
		log.Warn("generation disabled", "error", err)
	} else {
		p, err := buildPipeline(cfg, st, serveNoCache, log)
		if err != nil {
			return err
		}
		runner = timedRunner{runner: p, seconds: cfg.Pipeline.RunTimeout}
	}
	if cfg.Server.CronSecret == "" {
		log.Warn("server.cron_secret is empty, cron and admin endpoints are unauthenticated")
	}

	server := api.New(st, runner, cfg.Server, log)

	if cfg.Schedule.Enabled && runner != nil {
		scheduler, err := startSchedule(ctx, cfg.Schedule.Spec, server, log)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	return server.Start(ctx)
}

// startSchedule runs the pipeline through the server's trigger on spec
func startSchedule(ctx context.Context, spec string, server *api.Server, log *logging.Logger) (*cron.Cron, error) {
	log = log.Component("schedule")
	c := cron.New()
	err := c.AddFunc(spec, func() {
		summary, err := server.Trigger(ctx)
		switch {
		case errors.Is(err, api.ErrRunInProgress):
			log.Warn("skipping scheduled run, previous run still in progress")
		case err != nil:
			log.Error("scheduled run failed", "error", err)
		default:
			log.Info("scheduled run finished", "claims", summary.ClaimsPublished, "destination", summary.Destination)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", model.ErrConfig, spec, err)
	}
	c.Start()
	log.Info("schedule started", "spec", spec)
	return c, nil
}
