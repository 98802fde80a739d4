package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"pulse-currency/internal/alerting"
	"pulse-currency/internal/stats"
)

// SimulateAlert 模拟一次货币异动并触发告警通道，用于端到端验证配置。
func (a *App) SimulateAlert(ctx context.Context, code string, value, previous decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未启用任何告警通道，请先配置 alerting.telegram")
	}

	_, changePct := stats.Changes(value, previous, 1)

	note := alerting.Notification{
		Date:          time.Now(),
		CharCode:      code,
		Name:          "simulated",
		Value:         value,
		Previous:      previous,
		ChangePct:     changePct,
		ThresholdPct:  decimal.NewFromFloat(a.Config.Alerting.ThresholdPct),
		Direction:     direction(changePct),
		Channels:      a.Config.Alerting.Channels,
		AdditionalMsg: "(simulated alert)",
	}

	return notifier.Notify(ctx, note)
}

func direction(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}
