package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Prune deletes cache entries older than the given number of days.
func (a *App) Prune(ctx context.Context, olderThanDays int) error {
	deleted, err := a.newStore().Prune(olderThanDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "deleted %d cache entr%s\n", deleted, pluralY(deleted))
	return nil
}

// CacheStats prints a summary of the cache directory.
func (a *App) CacheStats(ctx context.Context) error {
	stats, err := a.newStore().CacheStats()
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Entries\t%d\n", stats.Count)
	if stats.Count > 0 {
		fmt.Fprintf(writer, "Oldest\t%s\n", stats.Oldest.Format("2006-01-02"))
		fmt.Fprintf(writer, "Newest\t%s\n", stats.Newest.Format("2006-01-02"))
	}
	fmt.Fprintf(writer, "Total size\t%d bytes\n", stats.TotalSize)
	writer.Flush()
	return nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
