package engine

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"tradepilot/internal/indicator"
	"tradepilot/internal/logger"
	"tradepilot/internal/model"
	"tradepilot/internal/notification"
	"tradepilot/internal/risk"
)

// referenceSymbol anchors the regime read and the hedge advisory.
const referenceSymbol = "BTCUSDT"

// cycleRun is the working set of one decision cycle.
type cycleRun struct {
	ctx     context.Context
	state   *risk.EngineState
	profile model.RiskProfile
	trades  []model.TradeRecord
	snaps   map[string]*indicator.Snapshot
	stale   map[string]bool

	balance     float64
	haveBalance bool

	failed []string
}

// step runs one named cycle step with failure isolation.
func (e *Engine) step(run *cycleRun, name string, fn func() error) bool {
	if err := fn(); err != nil {
		attrs := append([]any{
			slog.String("step", name),
			slog.String("error", err.Error()),
		}, logger.CycleAttrs(run.ctx)...)
		slog.Error("cycle step failed", attrs...)
		e.recordStepFailure(name)
		run.failed = append(run.failed, name)
		return false
	}
	return true
}

// RunCycle executes one full decision cycle. The returned error is only for
// failures that made the cycle pointless (the trade list could not be
// loaded); degraded steps are logged and counted, not returned.
func (e *Engine) RunCycle(ctx context.Context) error {
	started := e.now()
	ctx = logger.NewCycle(ctx, e.cfg.BoardID, started)
	slog.Info("cycle started", logger.CycleAttrs(ctx)...)

	if e.metrics != nil {
		e.metrics.CyclesTotal.Inc()
		defer func() {
			e.metrics.CycleDur.Observe(time.Since(started).Seconds())
		}()
	}

	run := &cycleRun{
		ctx:   ctx,
		snaps: make(map[string]*indicator.Snapshot),
		stale: make(map[string]bool),
	}

	// Cross-cycle state. A corrupt file degrades to a cold start.
	st, err := risk.LoadState(e.cfg.StatePath)
	if err != nil {
		log.Printf("[engine] state load degraded: %v", err)
		e.recordStepFailure("state_load")
	}
	run.state = st

	e.step(run, "account", func() error {
		acct, err := e.store.GetAccount(ctx, e.cfg.BoardID)
		if err != nil {
			return err
		}
		run.balance = acct.Balance
		run.haveBalance = true
		return nil
	})

	// Resolve the profile, then let the drawdown breaker override it.
	run.profile = model.Profile(e.profiles, e.cfg.RiskProfile)
	if run.haveBalance {
		ddPct := drawdownPct(run.state, run.balance)
		hadLockout := run.state.Drawdown != nil
		profile, mutated := risk.ApplyDrawdown(run.state, e.profiles, run.profile, run.balance, started)
		run.profile = profile
		if mutated {
			// The mutation must survive a crash between here and cycle end.
			if err := run.state.Save(e.cfg.StatePath); err != nil {
				log.Printf("[engine] state save after drawdown change: %v", err)
			}
		}
		if !hadLockout && run.state.Drawdown != nil {
			e.notify(ctx, notification.DrawdownAlert(ddPct))
		}
	}

	if ok := e.step(run, "trades", func() error {
		trades, err := e.store.ListTrades(ctx, e.cfg.BoardID)
		if err != nil {
			return err
		}
		run.trades = trades
		return nil
	}); !ok {
		e.saveState(run)
		return fmt.Errorf("engine: cycle aborted, trade list unavailable")
	}

	e.step(run, "seed_watchlist", func() error { return e.seedWatchlist(run) })
	e.step(run, "snapshots", func() error { return e.fetchSnapshots(run) })
	e.step(run, "exits", func() error { return e.processExits(run) })
	if run.haveBalance {
		e.step(run, "entries", func() error { return e.processEntries(run) })
	} else {
		log.Printf("[engine] skipping entries: balance unknown this cycle")
	}
	e.step(run, "watchlist", func() error { return e.processWatchlist(run) })
	e.step(run, "stats", func() error { return e.publishStats(run) })

	e.saveState(run)

	attrs := append([]any{
		slog.Int("failed_steps", len(run.failed)),
		slog.Duration("took", time.Since(started)),
	}, logger.CycleAttrs(ctx)...)
	slog.Info("cycle finished", attrs...)
	return nil
}

func (e *Engine) saveState(run *cycleRun) {
	if err := run.state.Save(e.cfg.StatePath); err != nil {
		log.Printf("[engine] state save: %v", err)
		e.recordStepFailure("state_save")
	}
}

func (e *Engine) notify(ctx context.Context, alert notification.Alert) {
	if err := e.notifier.Send(ctx, alert); err != nil {
		log.Printf("[engine] alert delivery failed: %v", err)
		e.recordStepFailure("notify")
	}
}

// drawdownPct reports the current month-to-date drawdown percent, 0 when no
// baseline exists yet.
func drawdownPct(s *risk.EngineState, balance float64) float64 {
	if s.MonthStartBalance <= 0 {
		return 0
	}
	return (s.MonthStartBalance - balance) / s.MonthStartBalance * 100
}

// seedWatchlist creates watchlist records for pinned symbols that have no
// open record on the board. Closed records do not block re-seeding.
func (e *Engine) seedWatchlist(run *cycleRun) error {
	open := make(map[string]bool)
	for _, t := range run.trades {
		if !t.Status.Terminal() {
			open[t.Symbol] = true
		}
	}
	for _, sym := range e.cfg.ParseSymbols() {
		if open[sym] {
			continue
		}
		created, err := e.store.CreateTrade(run.ctx, model.TradeRecord{
			Board:  e.cfg.BoardID,
			Symbol: sym,
			Status: model.StatusWatchlist,
		})
		if err != nil {
			return fmt.Errorf("seed %s: %w", sym, err)
		}
		run.trades = append(run.trades, created)
		log.Printf("[engine] seeded %s to watchlist", sym)
	}
	return nil
}

// fetchSnapshots builds an indicator snapshot per symbol of interest. Live
// fetches feed the cache; fetch failures feed the breaker and fall back to
// cached series, flagged stale. A symbol with no data simply has no
// snapshot — downstream evaluators skip it.
func (e *Engine) fetchSnapshots(run *cycleRun) error {
	run.snaps, run.stale = e.collectSnapshots(run.ctx, run.trades)
	if len(run.snaps) == 0 {
		return fmt.Errorf("no snapshots for any symbol of interest")
	}
	return nil
}

func (e *Engine) collectSnapshots(ctx context.Context, trades []model.TradeRecord) (map[string]*indicator.Snapshot, map[string]bool) {
	snaps := make(map[string]*indicator.Snapshot)
	stale := make(map[string]bool)
	for i, sym := range e.symbolsOfInterest(trades) {
		if i > 0 && e.cfg.FetchDelay > 0 {
			time.Sleep(e.cfg.FetchDelay)
		}
		series, live := e.fetchSeries(ctx, sym)
		if len(series) == 0 {
			continue
		}
		var funding *float64
		if live {
			f, err := e.market.GetFundingRate(ctx, sym)
			if err == nil {
				funding = f
			}
		}
		snap := indicator.Compute(sym, series, funding)
		if snap == nil {
			log.Printf("[engine] %s: series too short for a snapshot (%d bars)", sym, len(series))
			continue
		}
		snaps[sym] = snap
		stale[sym] = !live
	}
	return snaps, stale
}

func (e *Engine) fetchSeries(ctx context.Context, symbol string) (model.Series, bool) {
	if e.breaker.Allow() {
		series, err := e.market.GetCandles(ctx, symbol, timeframe, candleLimit)
		if err == nil {
			e.cache.Put(ctx, symbol, timeframe, series)
			return series, true
		}
		log.Printf("[engine] fetch %s failed: %v", symbol, err)
		e.breaker.RecordFailure()
	}
	return e.cache.Get(ctx, symbol, timeframe), false
}

// symbolsOfInterest is the pinned list plus every open record's symbol plus
// the reference symbol, deduplicated in a stable order.
func (e *Engine) symbolsOfInterest(trades []model.TradeRecord) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(sym string) {
		if sym == "" || seen[sym] {
			return
		}
		seen[sym] = true
		out = append(out, sym)
	}
	add(referenceSymbol)
	for _, sym := range e.cfg.ParseSymbols() {
		add(sym)
	}
	add(e.cfg.HedgeSymbol)
	for _, t := range trades {
		if !t.Status.Terminal() {
			add(t.Symbol)
		}
	}
	return out
}

// publishStats runs the end-of-cycle advisory pass: hedge advice, the
// regime-shift log line, and gauges.
func (e *Engine) publishStats(run *cycleRun) error {
	ref := run.snaps[referenceSymbol]

	if msg, ok := risk.HedgeAdvice(run.trades, ref); ok {
		e.notify(run.ctx, notification.HedgeAlert(msg))
	}

	if ref != nil {
		prev := run.state.LastADX
		switch {
		case prev > 0 && prev <= 25 && ref.ADX > 25:
			log.Printf("[engine] regime shift: trending (ADX %.1f → %.1f)", prev, ref.ADX)
		case prev >= 20 && ref.ADX < 20:
			log.Printf("[engine] regime shift: ranging (ADX %.1f → %.1f)", prev, ref.ADX)
		}
		run.state.LastADX = ref.ADX
	}

	if e.metrics != nil {
		if run.haveBalance {
			e.metrics.AccountBalance.Set(run.balance)
		}
		if e.breaker.Open() {
			e.metrics.BreakerState.Set(1)
		} else {
			e.metrics.BreakerState.Set(0)
		}
	}
	return nil
}
