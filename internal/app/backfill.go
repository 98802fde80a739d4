package app

import (
	"context"
	"errors"

	"pulse-currency/internal/fetcher"
	"pulse-currency/internal/resolver"
)

// Backfill 按日期区间批量解析并缓存历史快照。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	dates := resolver.DateRange(opts.From, opts.To)
	if len(dates) == 0 {
		return errors.New("回填范围为空，请检查 --from/--to")
	}

	if opts.DryRun {
		a.Logger.Info().Int("dates", len(dates)).Msg("回填 dry-run：仅列出日期，不发起请求")
		for _, d := range dates {
			a.Logger.Info().Str("date", d.Format("2006-01-02")).Msg("would backfill")
		}
		return nil
	}

	res := a.newResolver()
	job := res.ResolveMany(ctx, dates, opts.Workers)

	for p := range job.Progress() {
		event := a.Logger.Info()
		if p.Err != nil {
			event = a.Logger.Warn().Err(p.Err)
		}
		event.
			Int("index", p.Index).
			Int("total", p.Total).
			Str("date", p.Date.Format("2006-01-02")).
			Msg("backfill progress")
	}

	results, err := job.Wait()
	if err != nil {
		return err
	}

	processed := 0
	missing := 0
	failed := 0
	for _, r := range results {
		switch {
		case r.Err == nil:
			processed++
		case isArchiveGap(r.Err):
			// Weekends and holidays simply have no archive entry.
			missing++
		default:
			failed++
		}
	}

	a.Logger.Info().
		Int("processed", processed).
		Int("missing", missing).
		Int("failed", failed).
		Msg("回填完成")

	if failed > 0 {
		return errors.New("部分日期回填失败，请检查日志")
	}
	return nil
}

func isArchiveGap(err error) bool {
	kind, ok := fetcher.KindOf(err)
	return ok && kind == fetcher.KindNotFound
}
