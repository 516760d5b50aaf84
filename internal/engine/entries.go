package engine

import (
	"fmt"
	"log"
	"strings"

	"tradepilot/internal/journal"
	"tradepilot/internal/model"
	"tradepilot/internal/recordstore"
	"tradepilot/internal/risk"
	"tradepilot/internal/signal"
)

// processEntries evaluates every analyzing record against the strategy
// table. Entries require a fresh snapshot: opening a position on cached
// data would size and stop against a price that may no longer exist.
func (e *Engine) processEntries(run *cycleRun) error {
	refMomentum := 0.0
	if ref := run.snaps[referenceSymbol]; ref != nil {
		refMomentum = ref.Momentum10
	}

	for i := range run.trades {
		t := &run.trades[i]
		if t.Status != model.StatusAnalyzing {
			continue
		}
		snap := run.snaps[t.Symbol]
		if snap == nil {
			continue
		}
		if run.stale[t.Symbol] {
			log.Printf("[engine] %s entry deferred: snapshot is cached", t.Symbol)
			continue
		}

		if ok, why := risk.CooldownOK(run.state, t.Symbol, run.profile, snap.Momentum1, e.now()); !ok {
			log.Printf("[engine] %s entry blocked: %s", t.Symbol, why)
			continue
		}

		dec := signal.EvaluateEntry(snap, signal.EntryContext{
			Profile:     run.profile,
			RefMomentum: refMomentum,
			HedgeSymbol: strings.EqualFold(t.Symbol, e.cfg.HedgeSymbol),
		})
		if dec == nil {
			continue
		}

		if ok, why := risk.CheckCorrelation(run.trades, t.Symbol, dec.Direction); !ok {
			log.Printf("[engine] %s entry blocked: %s", t.Symbol, why)
			continue
		}

		size := risk.PositionSize(run.balance, snap, dec.Strategy, run.state.LossCooldownActive())
		if size <= 0 || size > run.balance {
			log.Printf("[engine] %s entry skipped: size %.2f vs balance %.2f", t.Symbol, size, run.balance)
			continue
		}

		if err := e.openTrade(run, t, snap.Price, snap.ATR, size, dec); err != nil {
			log.Printf("[engine] %s entry failed: %v", t.Symbol, err)
			e.recordStepFailure("open_trade")
			continue
		}
	}
	return nil
}

func (e *Engine) openTrade(run *cycleRun, t *model.TradeRecord, price, atr, size float64, dec *signal.EntryDecision) error {
	meta := t.Meta
	meta.EntryReason = fmt.Sprintf("%s: %s", dec.Strategy, dec.Reason)
	meta.SignalPrice = price
	meta.ATRAtEntry = atr

	stop, target := signal.InitialStops(price, atr, dec.Direction)
	patch := recordstore.TradePatch{
		Status:       recordstore.StatusPtr(model.StatusActive),
		Direction:    recordstore.DirectionPtr(dec.Direction),
		EntryPrice:   recordstore.Float(price),
		PositionSize: recordstore.Float(size),
		StopLoss:     recordstore.Float(stop),
		Meta:         &meta,
	}
	if target > 0 {
		patch.TakeProfit = recordstore.Float(target)
	}
	if err := e.store.PatchTrade(run.ctx, t.ID, patch); err != nil {
		return err
	}
	if err := e.store.DeductBalance(run.ctx, e.cfg.BoardID, size); err != nil {
		return err
	}
	run.balance -= size

	t.Status = model.StatusActive
	t.Direction = dec.Direction
	t.EntryPrice = price
	t.PositionSize = size
	t.StopLoss = stop
	t.TakeProfit = target
	t.Meta = meta

	run.state.ConsumeTradeSlot()
	run.state.MarkMove(t.Symbol, e.now())

	e.appendJournal(run, t.ID, recordstore.JournalEntry, meta.EntryReason)
	e.journalDecision(journal.Decision{
		CycleID:   cycleID(run.ctx),
		Symbol:    t.Symbol,
		Action:    "enter",
		Direction: string(dec.Direction),
		Strategy:  dec.Strategy,
		Price:     price,
		Size:      size,
		Reason:    dec.Reason,
		DecidedAt: e.now(),
	})
	if e.metrics != nil {
		e.metrics.TradesOpened.Inc()
	}
	log.Printf("[engine] %s entered %s via %s at %.4f, size %.2f",
		t.Symbol, dec.Direction, dec.Strategy, price, size)
	return nil
}

// processWatchlist promotes watchlist symbols whose weighted signal count
// clears the profile threshold. Promotion is a cheap state change, so a
// cached snapshot is acceptable here.
func (e *Engine) processWatchlist(run *cycleRun) error {
	for i := range run.trades {
		t := &run.trades[i]
		if t.Status != model.StatusWatchlist {
			continue
		}
		snap := run.snaps[t.Symbol]
		promo := signal.ShouldPromote(snap, run.profile)
		if !promo.Promote {
			continue
		}

		if ok, why := risk.CooldownOK(run.state, t.Symbol, run.profile, snap.Momentum1, e.now()); !ok {
			log.Printf("[engine] %s promotion blocked: %s", t.Symbol, why)
			continue
		}

		if err := e.store.PatchTrade(run.ctx, t.ID, recordstore.TradePatch{
			Status: recordstore.StatusPtr(model.StatusAnalyzing),
		}); err != nil {
			log.Printf("[engine] %s promotion failed: %v", t.Symbol, err)
			e.recordStepFailure("promote_trade")
			continue
		}
		t.Status = model.StatusAnalyzing
		run.state.MarkMove(t.Symbol, e.now())

		reason := fmt.Sprintf("weight %d: %s", promo.Weight, strings.Join(promo.Signals, ", "))
		e.appendJournal(run, t.ID, recordstore.JournalNote, "promoted to analyzing: "+reason)
		e.journalDecision(journal.Decision{
			CycleID:   cycleID(run.ctx),
			Symbol:    t.Symbol,
			Action:    "promote",
			Price:     snap.Price,
			Reason:    reason,
			DecidedAt: e.now(),
		})
		log.Printf("[engine] %s promoted to analyzing (%s)", t.Symbol, reason)
	}
	return nil
}
