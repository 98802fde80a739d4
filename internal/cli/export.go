package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pulse-currency/internal/app"
)

var (
	exportCurrency  string
	exportDays      int
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a currency's cached history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportCurrency == "" {
			return fmt.Errorf("--currency must be provided")
		}

		opts := app.ExportOptions{
			Currency:  strings.ToUpper(exportCurrency),
			Days:      exportDays,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCurrency, "currency", "", "3-letter currency code (e.g. USD)")
	exportCmd.Flags().IntVar(&exportDays, "days", 30, "Calendar days of cached history to scan")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
