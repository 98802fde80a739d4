package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pulse-currency/internal/app"
)

var fetchDate string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and display rates for a date (defaults to today)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.FetchOptions{}

		if fetchDate != "" {
			date, err := time.Parse("2006-01-02", fetchDate)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			opts.Date = date
		}

		return getApp().Fetch(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "Calendar date (YYYY-MM-DD); empty means today")
}
