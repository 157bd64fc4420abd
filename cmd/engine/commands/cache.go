package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"statement_engine/pkg/core/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached report from cache.dir",
	Long: `Deletes the file result cache configured by cache.dir (or CACHE_DIR).
Stored reports in the vault are not touched.

Example:
  CACHE_DIR=.cache/results engine cache clear`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Dir == "" {
		return errors.New("no file cache configured: set cache.dir or CACHE_DIR")
	}

	fc, err := store.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	if err := fc.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", fc.Dir())
	return nil
}
