package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/claudeline/internal/cache"
	"github.com/theirongolddev/claudeline/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached row counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := store.Open()
		if err != nil {
			if errors.Is(err, store.ErrDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "persistent cache disabled (CLAUDE_DB_CACHE_DISABLE=1)")
				return nil
			}
			return err
		}
		defer func() { _ = s.Close() }()

		sessions, apiEntries, err := s.Counts()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "db: %s\nsessions: %d\napi responses: %d\n",
			store.Path(), sessions, apiEntries)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cache.Clear()

		s, err := store.Open()
		if err != nil {
			if errors.Is(err, store.ErrDisabled) {
				return nil
			}
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
