package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	runDraft       bool
	runMaxClaims   int
	runMaxArticles int
	runNoCache     bool
	runTimeout     int
	runJSON        bool
	runProvider    string
	runModel       string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate today's claim pairs",
	Long: `Run one generation pass: fetch the configured feeds, extract headline facts,
synthesize a true/false pair for each fact, validate the pairs and store them.

Examples:
  realitycheck run
  realitycheck run --draft --max-claims 5
  realitycheck run --provider ollama --model llama3.1 --json`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDraft, "draft", false, "store pairs as drafts for moderation instead of publishing")
	runCmd.Flags().IntVar(&runMaxClaims, "max-claims", 0, "maximum pairs to store (default from config)")
	runCmd.Flags().IntVar(&runMaxArticles, "max-articles", 0, "maximum articles to process (default from config)")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "bypass the response cache")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "abort the run after this many seconds (default from config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider override (anthropic, openai, groq, ollama)")
	runCmd.Flags().StringVar(&runModel, "model", "", "LLM model override")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("draft") {
		cfg.Pipeline.AutoPublish = !runDraft
	}
	if flags.Changed("max-claims") {
		cfg.Pipeline.MaxClaims = runMaxClaims
	}
	if flags.Changed("max-articles") {
		cfg.Pipeline.MaxArticles = runMaxArticles
	}
	if flags.Changed("timeout") {
		cfg.Pipeline.RunTimeout = runTimeout
	}
	if flags.Changed("provider") {
		overrideProvider(&cfg, runProvider)
	}
	if flags.Changed("model") {
		cfg.LLM.Model = runModel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := withRunTimeout(ctx, cfg.Pipeline.RunTimeout)
	defer cancel()

	if err := cfg.Validate(); err != nil {
		return err
	}
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := buildPipeline(cfg, st, runNoCache, log)
	if err != nil {
		return err
	}

	summary, runErr := p.Run(ctx)

	if runJSON {
		if err := writeJSON(summary); err != nil {
			return err
		}
	} else {
		printer := newPrinter()
		printer.RunSummary(summary)
		if runErr == nil && summary.ArticlesFetched == 0 {
			printer.Warning("No articles found")
		}
	}

	return runErr
}
