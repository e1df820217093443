package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/realitycheck/internal/cache"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/store"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the schema to the configured store. Every command that opens the
store does this too; migrate is for provisioning ahead of the first run.`,
	RunE: withStore(func(ctx context.Context, cfg model.Config, st store.Store, args []string) error {
		newPrinter().Success("%s schema is up to date", cfg.Store.Driver)
		return nil
	}),
}

// cacheCmd groups response cache maintenance
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the generation response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cacheDir(cfg.Cache)
		n, err := cache.NewDiskCache(dir, time.Duration(cfg.Cache.TTL)*time.Hour).Prune()
		if err != nil {
			return err
		}
		newPrinter().Success("Removed %d expired entries from %s", n, dir)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cacheDir(cfg.Cache)
		if err := cache.NewDiskCache(dir, 0).Clear(); err != nil {
			return err
		}
		newPrinter().Success("Cleared %s", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd)
}
