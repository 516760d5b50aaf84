package engine

import (
	"fmt"
	"log"

	"tradepilot/internal/indicator"
	"tradepilot/internal/journal"
	"tradepilot/internal/model"
	"tradepilot/internal/notification"
	"tradepilot/internal/recordstore"
	"tradepilot/internal/risk"
	"tradepilot/internal/signal"
)

// flipStrategy names the synthetic entry created by a stop-and-reverse.
const flipStrategy = "stop_flip"

// processExits walks every active trade through the exit ladder. Per-trade
// store failures are logged and skipped so one bad record cannot freeze the
// rest of the board.
func (e *Engine) processExits(run *cycleRun) error {
	for i := range run.trades {
		t := &run.trades[i]
		if t.Status != model.StatusActive {
			continue
		}
		snap := run.snaps[t.Symbol]
		dec := signal.EvaluateExit(t, snap)

		var err error
		switch dec.Action {
		case signal.Hold:
			if dec.Meta != nil {
				err = e.persistTrailing(run, t, dec)
			}
		case signal.PartialTake:
			err = e.partialTake(run, t, snap, dec)
		case signal.Exit:
			err = e.closeTrade(run, t, snap, dec.Win, dec.Reason, true)
		case signal.Flip:
			err = e.flipTrade(run, t, snap, dec)
		}
		if err != nil {
			log.Printf("[engine] exit handling %s (%s): %v", t.Symbol, t.ID, err)
			e.recordStepFailure("exit_trade")
		}
	}
	return nil
}

// persistTrailing saves a tightened trailing stop on a held trade. The stop
// goes onto the record's stop_loss level as well as the trailing metadata.
func (e *Engine) persistTrailing(run *cycleRun, t *model.TradeRecord, dec signal.ExitDecision) error {
	if err := e.store.PatchTrade(run.ctx, t.ID, recordstore.TradePatch{
		StopLoss: recordstore.Float(dec.Meta.TrailingStop),
		Meta:     dec.Meta,
	}); err != nil {
		return err
	}
	t.Meta = *dec.Meta
	t.StopLoss = dec.Meta.TrailingStop
	e.appendJournal(run, t.ID, recordstore.JournalTrailing,
		fmt.Sprintf("trailing stage %d, stop %.4f", t.Meta.TrailingStage, t.Meta.TrailingStop))
	e.journalDecision(journal.Decision{
		CycleID:   cycleID(run.ctx),
		Symbol:    t.Symbol,
		Action:    "trail",
		Direction: string(t.Direction),
		Price:     t.Meta.TrailingStop,
		Reason:    fmt.Sprintf("stage %d", t.Meta.TrailingStage),
		DecidedAt: e.now(),
	})
	return nil
}

// partialTake realizes half the position at the current price. It can only
// happen once per trade; the meta flag enforces that.
func (e *Engine) partialTake(run *cycleRun, t *model.TradeRecord, snap *indicator.Snapshot, dec signal.ExitDecision) error {
	half := t.PositionSize / 2
	proceeds := half * (1 + t.PnLPct(snap.Price)/100)

	if err := e.store.PatchTrade(run.ctx, t.ID, recordstore.TradePatch{
		PositionSize: recordstore.Float(half),
		Meta:         dec.Meta,
	}); err != nil {
		return err
	}
	if err := e.store.DeductBalance(run.ctx, e.cfg.BoardID, -proceeds); err != nil {
		return err
	}
	run.balance += proceeds
	t.PositionSize = half
	t.Meta = *dec.Meta

	e.appendJournal(run, t.ID, recordstore.JournalPartial, dec.Reason)
	e.journalDecision(journal.Decision{
		CycleID:   cycleID(run.ctx),
		Symbol:    t.Symbol,
		Action:    "partial_exit",
		Direction: string(t.Direction),
		Price:     snap.Price,
		Size:      half,
		Reason:    dec.Reason,
		DecidedAt: e.now(),
	})
	log.Printf("[engine] %s partial take at %.4f, %.2f released", t.Symbol, snap.Price, proceeds)
	return nil
}

// closeTrade finalizes a trade at the snapshot price, credits the proceeds
// back, updates the loss-streak counters, and (when requeue is set) puts
// core symbols straight back into analyzing. Non-core symbols get a
// requeue_after stamp instead: the external sentinel that re-queues them
// reads it rather than keeping its own cooldown ledger.
func (e *Engine) closeTrade(run *cycleRun, t *model.TradeRecord, snap *indicator.Snapshot, win bool, reason string, requeue bool) error {
	price := snap.Price
	status := model.StatusClosedLoss
	result := "loss"
	if win {
		status = model.StatusClosedWin
		result = "win"
	}

	patch := recordstore.TradePatch{
		Status:    recordstore.StatusPtr(status),
		ExitPrice: recordstore.Float(price),
	}
	meta := t.Meta
	if requeue && !model.IsCore(t.Symbol) {
		meta.RequeueAfter = e.now().Add(run.profile.Cooldown)
		patch.Meta = &meta
	}
	if err := e.store.PatchTrade(run.ctx, t.ID, patch); err != nil {
		return err
	}
	if err := e.store.ExitTrade(run.ctx, t.ID); err != nil {
		return err
	}
	proceeds := t.PositionSize * (1 + t.PnLPct(price)/100)
	if proceeds > 0 {
		if err := e.store.DeductBalance(run.ctx, e.cfg.BoardID, -proceeds); err != nil {
			return err
		}
		run.balance += proceeds
	}

	e.appendJournal(run, t.ID, recordstore.JournalExit, reason)
	e.journalDecision(journal.Decision{
		CycleID:   cycleID(run.ctx),
		Symbol:    t.Symbol,
		Action:    "exit",
		Direction: string(t.Direction),
		Price:     price,
		Size:      t.PositionSize,
		Reason:    reason,
		DecidedAt: e.now(),
	})

	run.state.RecordExit(win)
	run.state.MarkMove(t.Symbol, e.now())
	if e.metrics != nil {
		e.metrics.TradesClosed.WithLabelValues(result).Inc()
	}
	log.Printf("[engine] %s closed %s at %.4f: %s", t.Symbol, result, price, reason)

	t.Status = status
	t.ExitPrice = price
	t.Meta = meta

	// Core symbols never leave rotation: they go straight back to analyzing.
	if requeue && model.IsCore(t.Symbol) {
		created, err := e.store.CreateTrade(run.ctx, model.TradeRecord{
			Board:  e.cfg.BoardID,
			Symbol: t.Symbol,
			Status: model.StatusAnalyzing,
		})
		if err != nil {
			return fmt.Errorf("requeue %s: %w", t.Symbol, err)
		}
		run.trades = append(run.trades, created)
	}
	return nil
}

// flipTrade closes a hard-stopped trade and reopens it in the opposite
// direction in the same cycle. The flip is still subject to the correlation
// guard and needs a known balance to size; otherwise it degrades to a plain
// exit.
func (e *Engine) flipTrade(run *cycleRun, t *model.TradeRecord, snap *indicator.Snapshot, dec signal.ExitDecision) error {
	// Reopening prices and sizes a brand-new position. A cached snapshot is
	// good enough to honor the stop, not to do that: downgrade to a plain
	// exit, same as entries defer on stale data.
	if run.stale[t.Symbol] {
		log.Printf("[engine] %s flip downgraded to exit: snapshot is cached", t.Symbol)
		return e.closeTrade(run, t, snap, false, dec.Reason, true)
	}

	fromID := t.ID
	fromDir := t.Direction
	// No requeue here: the flip itself keeps the symbol in rotation, and a
	// blocked flip falls back to next cycle's watchlist seeding.
	if err := e.closeTrade(run, t, snap, false, dec.Reason, false); err != nil {
		return err
	}

	if !run.haveBalance {
		log.Printf("[engine] %s flip skipped: balance unknown", t.Symbol)
		return nil
	}
	if ok, why := risk.CheckCorrelation(run.trades, t.Symbol, dec.FlipDirection); !ok {
		log.Printf("[engine] %s flip blocked: %s", t.Symbol, why)
		return nil
	}

	size := risk.PositionSize(run.balance, snap, flipStrategy, run.state.LossCooldownActive())
	if size <= 0 || size > run.balance {
		log.Printf("[engine] %s flip skipped: size %.2f vs balance %.2f", t.Symbol, size, run.balance)
		return nil
	}

	stop, target := signal.InitialStops(snap.Price, snap.ATR, dec.FlipDirection)
	created, err := e.store.CreateTrade(run.ctx, model.TradeRecord{
		Board:        e.cfg.BoardID,
		Symbol:       t.Symbol,
		Direction:    dec.FlipDirection,
		Status:       model.StatusActive,
		EntryPrice:   snap.Price,
		PositionSize: size,
		StopLoss:     stop,
		TakeProfit:   target,
		Meta: model.TradeMeta{
			EntryReason: dec.Reason,
			SignalPrice: snap.Price,
			ATRAtEntry:  snap.ATR,
			FlippedFrom: fromID,
		},
	})
	if err != nil {
		return fmt.Errorf("flip open %s: %w", t.Symbol, err)
	}
	if err := e.store.DeductBalance(run.ctx, e.cfg.BoardID, size); err != nil {
		return err
	}
	run.balance -= size
	run.trades = append(run.trades, created)
	run.state.ConsumeTradeSlot()

	e.appendJournal(run, created.ID, recordstore.JournalEntry, dec.Reason)
	e.journalDecision(journal.Decision{
		CycleID:   cycleID(run.ctx),
		Symbol:    t.Symbol,
		Action:    "flip",
		Direction: string(dec.FlipDirection),
		Strategy:  flipStrategy,
		Price:     snap.Price,
		Size:      size,
		Reason:    dec.Reason,
		DecidedAt: e.now(),
	})
	if e.metrics != nil {
		e.metrics.TradesFlipped.Inc()
	}
	e.notify(run.ctx, notification.FlipAlert(t.Symbol, string(fromDir), string(dec.FlipDirection)))
	return nil
}

func (e *Engine) appendJournal(run *cycleRun, tradeID string, kind recordstore.JournalType, text string) {
	if err := e.store.AppendJournal(run.ctx, tradeID, kind, text); err != nil {
		log.Printf("[engine] journal append %s: %v", tradeID, err)
		e.recordStepFailure("journal_append")
	}
}
