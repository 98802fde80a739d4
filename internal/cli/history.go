package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pulse-currency/internal/app"
)

var (
	historyCurrency string
	historyDays     int
	historyWindow   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show statistics for a currency across the cached window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyCurrency == "" {
			return fmt.Errorf("--currency must be provided")
		}
		if historyDays <= 0 {
			return fmt.Errorf("--days must be greater than zero")
		}

		opts := app.HistoryOptions{
			Currency: strings.ToUpper(historyCurrency),
			Days:     historyDays,
			Window:   historyWindow,
		}

		return getApp().History(cmd.Context(), opts)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyCurrency, "currency", "", "3-letter currency code (e.g. USD)")
	historyCmd.Flags().IntVar(&historyDays, "days", 14, "Calendar days of cached history to scan")
	historyCmd.Flags().IntVar(&historyWindow, "window", 0, "Moving-average window (0 disables)")
}
