package cli

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateCode     string
	simulateValue    float64
	simulatePrevious float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次货币异动并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateValue <= 0 || simulatePrevious <= 0 {
			return errors.New("--value 与 --previous 必须大于 0")
		}

		value := decimal.NewFromFloat(simulateValue)
		previous := decimal.NewFromFloat(simulatePrevious)
		return getApp().SimulateAlert(cmd.Context(), strings.ToUpper(simulateCode), value, previous)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCode, "currency", "USD", "货币代码")
	simulateCmd.Flags().Float64Var(&simulateValue, "value", 0, "当前汇率")
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "前一日汇率")
}
