package signal

import (
	"fmt"

	"tradepilot/internal/indicator"
	"tradepilot/internal/model"
)

// ExitAction is what the orchestrator should do with an active trade.
type ExitAction int

const (
	Hold        ExitAction = iota
	PartialTake            // reduce size 50%, trade stays open
	Exit                   // close the trade
	Flip                   // close, then reopen in the opposite direction
)

func (a ExitAction) String() string {
	switch a {
	case Hold:
		return "hold"
	case PartialTake:
		return "partial_take"
	case Exit:
		return "exit"
	case Flip:
		return "flip"
	default:
		return "unknown"
	}
}

// ExitDecision is the outcome of EvaluateExit. Meta, when non-nil, carries
// trailing-stop/partial metadata the orchestrator must persist even on Hold.
type ExitDecision struct {
	Action        ExitAction
	Win           bool
	Reason        string
	FlipDirection model.Direction // set when Action == Flip
	Meta          *model.TradeMeta
}

// Trailing-stop stages, expressed in ATR multiples of unrealized profit.
// The stop only ever tightens: stage and price are monotone per trade.
const (
	stage1ProfitATR  = 1.5 // stop to breakeven
	stage2ProfitATR  = 2.0 // stop 1.0 ATR behind price
	stage3ProfitATR  = 3.0 // stop 0.75 ATR behind price
	partialProfitATR = 2.0 // one-time 50% profit take
)

// EvaluateExit walks the exit ladder for one active trade:
// partial profit-take, staged trailing stop, dynamic hard stop (with a
// direction-flip check), then momentum/overbought-oversold exits.
// Steps short-circuit in that order.
func EvaluateExit(t *model.TradeRecord, s *indicator.Snapshot) ExitDecision {
	if s == nil || t.EntryPrice == 0 {
		// Missing data means "no decision", never a crash.
		return ExitDecision{Action: Hold}
	}

	price := s.Price
	pnl := t.PnLPct(price)

	atr := t.Meta.ATRAtEntry
	if atr == 0 {
		atr = s.ATR
	}
	atrPct := atr / t.EntryPrice * 100

	// 1. Partial profit-take, once per trade.
	if atrPct > 0 && pnl >= partialProfitATR*atrPct && !t.Meta.PartialTaken {
		meta := t.Meta
		meta.PartialTaken = true
		return ExitDecision{
			Action: PartialTake,
			Reason: fmt.Sprintf("unrealized %.1f%% ≥ 2×ATR move, taking 50%%", pnl),
			Meta:   &meta,
		}
	}

	// 2. Staged trailing stop.
	meta, changed := tightenTrailing(t, s, atr, atrPct, pnl)
	if stop := meta.TrailingStop; stop > 0 {
		crossed := (t.Direction == model.Long && price <= stop) ||
			(t.Direction == model.Short && price >= stop)
		if crossed {
			return ExitDecision{
				Action: Exit,
				Win:    true,
				Reason: fmt.Sprintf("trailing stop stage %d hit at %.4f", meta.TrailingStage, stop),
			}
		}
	}

	// 3. Dynamic hard stop: 2×ATR%, clamped to [2%, 8%] of entry.
	stopPct := 2 * atrPct
	if stopPct < 2 {
		stopPct = 2
	}
	if stopPct > 8 {
		stopPct = 8
	}
	if pnl <= -stopPct {
		if dir, ok := flipDirection(t, s); ok {
			return ExitDecision{
				Action:        Flip,
				Win:           false,
				Reason:        fmt.Sprintf("hard stop at %.1f%% loss, trend evidence favors %s", pnl, dir),
				FlipDirection: dir,
			}
		}
		return ExitDecision{
			Action: Exit,
			Win:    false,
			Reason: fmt.Sprintf("hard stop: %.1f%% loss exceeds %.1f%% limit", pnl, stopPct),
		}
	}

	// 4. Momentum / overbought-oversold exits.
	if t.Direction == model.Long {
		if s.PrevRSI >= 70 && s.RSI < 70 && pnl > 0 {
			return ExitDecision{Action: Exit, Win: true, Reason: "RSI crossed back below 70 in profit"}
		}
		if s.MACDHist < -1 && pnl < 0 {
			return ExitDecision{Action: Exit, Win: false, Reason: "MACD histogram reversed below -1 while losing"}
		}
	} else {
		if s.PrevRSI <= 30 && s.RSI > 30 && pnl > 0 {
			return ExitDecision{Action: Exit, Win: true, Reason: "RSI crossed back above 30 in profit"}
		}
		if s.MACDHist > 1 && pnl < 0 {
			return ExitDecision{Action: Exit, Win: false, Reason: "MACD histogram reversed above +1 while losing"}
		}
	}

	// Hold, but persist any trailing tightening that happened this cycle.
	dec := ExitDecision{Action: Hold}
	if changed {
		dec.Meta = &meta
	}
	return dec
}

// InitialStops derives the protective levels implied at entry time, for
// persisting on the record: the dynamic hard stop (2×ATR%, clamped to
// [2%, 8%] of entry) and the partial-take target (2×ATR in profit). The
// target is 0 when ATR is unknown.
func InitialStops(entry, atr float64, dir model.Direction) (stopLoss, takeProfit float64) {
	if entry <= 0 {
		return 0, 0
	}
	atrPct := atr / entry * 100
	stopPct := 2 * atrPct
	if stopPct < 2 {
		stopPct = 2
	}
	if stopPct > 8 {
		stopPct = 8
	}
	targetPct := partialProfitATR * atrPct
	if dir == model.Short {
		stopPct, targetPct = -stopPct, -targetPct
	}
	stopLoss = entry * (1 - stopPct/100)
	if atrPct > 0 {
		takeProfit = entry * (1 + targetPct/100)
	}
	return stopLoss, takeProfit
}

// tightenTrailing computes the trailing stage/stop for the current profit
// and merges it monotonically with the persisted values: the stop never
// loosens, the stage never regresses.
func tightenTrailing(t *model.TradeRecord, s *indicator.Snapshot, atr, atrPct, pnl float64) (model.TradeMeta, bool) {
	meta := t.Meta
	if atrPct <= 0 {
		return meta, false
	}

	profitATR := pnl / atrPct
	stage := 0
	var candidate float64
	switch {
	case profitATR >= stage3ProfitATR:
		stage = 3
		candidate = offsetStop(t.Direction, s.Price, 0.75*atr)
	case profitATR >= stage2ProfitATR:
		stage = 2
		candidate = offsetStop(t.Direction, s.Price, atr)
	case profitATR >= stage1ProfitATR:
		stage = 1
		candidate = t.EntryPrice // breakeven
	}
	if stage == 0 {
		return meta, false
	}

	changed := false
	if stage > meta.TrailingStage {
		meta.TrailingStage = stage
		changed = true
	}
	if meta.TrailingStop == 0 || favorable(t.Direction, candidate, meta.TrailingStop) {
		if candidate != meta.TrailingStop {
			meta.TrailingStop = candidate
			changed = true
		}
	}
	return meta, changed
}

// offsetStop places a stop `dist` behind price in the adverse direction.
func offsetStop(dir model.Direction, price, dist float64) float64 {
	if dir == model.Long {
		return price - dist
	}
	return price + dist
}

// favorable reports whether candidate tightens the stop relative to current.
func favorable(dir model.Direction, candidate, current float64) bool {
	if dir == model.Long {
		return candidate > current
	}
	return candidate < current
}

// flipDirection checks, after a hard stop, whether the opposite direction
// has enough trend evidence to reopen immediately: ADX above 25, DI
// dominance and MACD histogram agreeing with the opposite side, and RSI not
// already extreme against it.
func flipDirection(t *model.TradeRecord, s *indicator.Snapshot) (model.Direction, bool) {
	if s.ADX <= 25 {
		return "", false
	}
	opp := t.Direction.Opposite()
	if opp == model.Long {
		if s.PlusDI > s.MinusDI && s.MACDHist > 0 && s.RSI < 70 {
			return model.Long, true
		}
	} else {
		if s.MinusDI > s.PlusDI && s.MACDHist < 0 && s.RSI > 30 {
			return model.Short, true
		}
	}
	return "", false
}
