package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

var draftsLimit int

// draftsCmd groups moderation of unpublished pairs
var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Review pairs generated with --draft",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts, newest first",
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		drafts, err := st.ListDrafts(ctx, draftsLimit)
		if err != nil {
			return err
		}
		return printClaims(drafts)
	}),
}

var draftsApproveCmd = &cobra.Command{
	Use:   "approve <id>...",
	Short: "Publish drafts to the game",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		printer := newPrinter()
		for _, id := range args {
			claim, err := st.ApproveDraft(ctx, id)
			if err != nil {
				return err
			}
			printer.Success("Approved %s (%s)", claim.ID, claim.Source)
		}
		return nil
	}),
}

var draftsRejectCmd = &cobra.Command{
	Use:   "reject <id>...",
	Short: "Discard drafts",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		printer := newPrinter()
		for _, id := range args {
			if err := st.DeleteDraft(ctx, id); err != nil {
				return err
			}
			printer.Success("Rejected %s", id)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsListCmd, draftsApproveCmd, draftsRejectCmd)

	draftsListCmd.Flags().IntVar(&draftsLimit, "limit", 50, "maximum drafts to list")
	draftsListCmd.Flags().BoolVar(&claimsJSON, "json", false, "print drafts as JSON")
}
