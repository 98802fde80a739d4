package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached snapshots older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneDays <= 0 {
			return fmt.Errorf("--days must be greater than zero")
		}
		return getApp().Prune(cmd.Context(), pruneDays)
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats",
	Short: "Show cache directory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheStats(cmd.Context())
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 30, "Delete entries older than this many days")
}
