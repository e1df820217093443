package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/feedback"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/output"
	"github.com/ppiankov/realitycheck/internal/prompt"
	"github.com/ppiankov/realitycheck/internal/report"
	"github.com/ppiankov/realitycheck/internal/store"
	"github.com/ppiankov/realitycheck/internal/validate"
)

var (
	claimsLimit       int
	claimsReported    bool
	claimsMinReports  int
	claimsJSON        bool
	reviewMarkdown    string
	reviewHTML        string
	reviewReportLimit int

	addTrue        string
	addFalse       string
	addExplanation string
	addSource      string
	addDate        string
	addForce       bool
)

// claimsCmd groups moderation of stored claim pairs
var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and moderate stored claim pairs",
}

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approved pairs, least shown first (or most reported with --reported)",
	Long: `List approved claim pairs. The table shows shortened IDs; use --json for
the full IDs that delete and clear-reports expect.`,
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		var (
			claims []model.PublishedClaim
			err    error
		)
		if claimsReported {
			claims, err = st.SelectReported(ctx, claimsMinReports, claimsLimit)
		} else {
			claims, err = st.SelectLowExposureApproved(ctx, claimsLimit)
		}
		if err != nil {
			return err
		}
		return printClaims(claims)
	}),
}

var claimsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Publish a hand-written claim pair",
	Long: `Publish a claim pair written by hand. The pair goes through the same
quality rules as generated pairs unless --force is given. Hand-written pairs
are removed together by 'claims purge-manual'.

Examples:
  realitycheck claims add --true "The Senate passed the bill 52-48" \
    --false "The Senate passed the bill 61-39" --explanation "The vote was 52-48." --source NPR`,
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		claim, err := manualClaim(addTrue, addFalse, addExplanation, addSource, addDate, time.Now())
		if err != nil {
			return err
		}
		if !addForce {
			candidate := model.CandidateClaimPair{
				TrueClaim:   claim.TrueClaim,
				FalseClaim:  claim.FalseClaim,
				Explanation: claim.Explanation,
				Source:      claim.Source,
				Date:        claim.Date,
			}
			if r := validate.NewValidator(cfg.Validation).Check(candidate, nil); r != nil {
				return fmt.Errorf("pair rejected (%s), use --force to publish anyway", r.String())
			}
		}

		saved, err := st.InsertClaims(ctx, []model.PublishedClaim{claim})
		if err != nil {
			return err
		}
		newPrinter().Success("Published %s", saved[0].ID)
		return nil
	}),
}

// manualClaim builds a hand-entered pair; date is YYYY-MM-DD and defaults to today
func manualClaim(trueClaim, falseClaim, explanation, source, date string, now time.Time) (model.PublishedClaim, error) {
	trueClaim = strings.TrimSpace(trueClaim)
	falseClaim = strings.TrimSpace(falseClaim)
	if trueClaim == "" || falseClaim == "" {
		return model.PublishedClaim{}, errors.New("both --true and --false are required")
	}
	if source = strings.TrimSpace(source); source == "" {
		source = "Manual"
	}

	day := now.UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return model.PublishedClaim{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
		}
		day = parsed
	}

	return model.PublishedClaim{
		TrueClaim:   trueClaim,
		FalseClaim:  falseClaim,
		Explanation: strings.TrimSpace(explanation),
		Source:      source,
		Date:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Origin:      model.OriginManual,
		CreatedAt:   now.UTC(),
	}, nil
}

var claimsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an approved pair",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		if err := st.DeleteByID(ctx, args[0]); err != nil {
			return err
		}
		newPrinter().Success("Deleted %s", args[0])
		return nil
	}),
}

var claimsClearCmd = &cobra.Command{
	Use:   "clear-reports <id>",
	Short: "Reset a pair's report count after review",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		if err := st.ClearReportCount(ctx, args[0]); err != nil {
			return err
		}
		newPrinter().Success("Cleared reports for %s", args[0])
		return nil
	}),
}

var claimsPurgeCmd = &cobra.Command{
	Use:   "purge-manual",
	Short: "Delete every pair whose source is \"Manual\"",
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		n, err := st.DeleteManual(ctx)
		if err != nil {
			return err
		}
		newPrinter().Success("Deleted %d manual pairs", n)
		return nil
	}),
}

var claimsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show table sizes",
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		if claimsJSON {
			return writeJSON(stats)
		}
		printer := newPrinter()
		printer.Header("Claim store")
		fmt.Fprintf(printer.Out(), "Approved: %d\nReported: %d\nDrafts:   %d\n", stats.Approved, stats.Reported, stats.Drafts)
		return nil
	}),
}

var claimsReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Write a moderation review of reported pairs",
	Long: `Build a review of the reported pairs and the guidance the next run will
receive. Without --md or --html the Markdown is printed to stdout.

Examples:
  realitycheck claims review
  realitycheck claims review --md review.md --html review.html`,
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		prompts, err := prompt.Load(cfg.Pipeline.PromptFile)
		if err != nil {
			return err
		}
		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		reported, err := st.SelectReported(ctx, 1, reviewReportLimit)
		if err != nil {
			return err
		}

		review := report.Review{
			GeneratedAt: time.Now().UTC(),
			Stats:       stats,
			Reported:    reported,
			Guidance:    feedback.NewAggregator(st, nil, prompts.Feedback, cfg.Feedback, nil).Guidance(ctx),
		}

		rd := report.NewRenderer()
		printer := newPrinter()
		if reviewMarkdown == "" && reviewHTML == "" {
			fmt.Fprint(printer.Out(), rd.Markdown(review))
			return nil
		}
		if reviewMarkdown != "" {
			if err := rd.WriteMarkdown(review, reviewMarkdown); err != nil {
				return err
			}
			printer.Success("Wrote %s", reviewMarkdown)
		}
		if reviewHTML != "" {
			if err := rd.WriteHTML(review, reviewHTML); err != nil {
				return err
			}
			printer.Success("Wrote %s", reviewHTML)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	claimsCmd.AddCommand(claimsListCmd, claimsAddCmd, claimsDeleteCmd, claimsClearCmd, claimsPurgeCmd, claimsStatsCmd, claimsReviewCmd)

	claimsListCmd.Flags().IntVar(&claimsLimit, "limit", 20, "maximum pairs to list")
	claimsListCmd.Flags().BoolVar(&claimsReported, "reported", false, "list reported pairs, most reported first")
	claimsListCmd.Flags().IntVar(&claimsMinReports, "min-reports", 1, "minimum report count with --reported")
	claimsListCmd.Flags().BoolVar(&claimsJSON, "json", false, "print pairs as JSON")
	claimsStatsCmd.Flags().BoolVar(&claimsJSON, "json", false, "print stats as JSON")

	claimsAddCmd.Flags().StringVar(&addTrue, "true", "", "the accurate claim")
	claimsAddCmd.Flags().StringVar(&addFalse, "false", "", "the altered claim")
	claimsAddCmd.Flags().StringVar(&addExplanation, "explanation", "", "what the false claim changed")
	claimsAddCmd.Flags().StringVar(&addSource, "source", "Manual", "source name shown to players")
	claimsAddCmd.Flags().StringVar(&addDate, "date", "", "claim date as YYYY-MM-DD (default today)")
	claimsAddCmd.Flags().BoolVar(&addForce, "force", false, "skip the quality rules")

	claimsReviewCmd.Flags().StringVar(&reviewMarkdown, "md", "", "write the review as Markdown to this path")
	claimsReviewCmd.Flags().StringVar(&reviewHTML, "html", "", "write the review as HTML to this path")
	claimsReviewCmd.Flags().IntVar(&reviewReportLimit, "limit", 50, "maximum reported pairs in the review")
}

// withStore opens the configured store for a command and closes it afterwards
func withStore(fn func(ctx context.Context, cfg model.Config, st store.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(ctx, cfg, st, args)
	}
}

func printClaims(claims []model.PublishedClaim) error {
	if claimsJSON {
		return writeJSON(claims)
	}
	printer := newPrinter()
	if len(claims) == 0 {
		printer.Info("No claims")
		return nil
	}
	return output.ClaimsTable(printer.Out(), claims)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
