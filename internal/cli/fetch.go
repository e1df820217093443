package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/output"
	"github.com/ppiankov/realitycheck/internal/pipeline"
)

var (
	fetchSource string
	fetchJSON   bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print feed articles without generating claims",
	Long: `Fetch the configured feeds and print the normalized articles a run would
process. Useful for checking a new source before adding it.

Examples:
  realitycheck fetch
  realitycheck fetch --source "BBC World News" --json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchSource, "source", "", "fetch only the named source")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print articles as JSON")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	sources := cfg.Sources
	if fetchSource != "" {
		sources = sources[:0:0]
		for _, s := range cfg.Sources {
			if s.Name == fetchSource {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return errUnknownSource(fetchSource)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articles := pipeline.NewFetcher(cfg.Fetch, log).FetchAll(ctx, sources)

	if fetchJSON {
		return writeJSON(articles)
	}

	printer := newPrinter()
	if len(articles) == 0 {
		printer.Warning("No articles found")
		return nil
	}
	table := output.NewTable(printer.Out(), []string{"Source", "Date", "Title"})
	for _, a := range articles {
		table.AddRow([]string{a.Source, model.DateString(a.PublishedDate), output.Ellipsize(a.Title, 80)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	printer.Info("%d articles from %d sources", len(articles), len(sources))
	return nil
}
