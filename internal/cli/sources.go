package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/output"
)

func errUnknownSource(name string) error {
	return fmt.Errorf("no source named %q (see 'realitycheck sources')", name)
}

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return output.SourcesTable(newPrinter().Out(), cfg.Sources)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
