// Package signal holds the risk-profile-aware entry/exit logic.
//
// Three evaluators cover the trade lifecycle: ShouldPromote moves a
// watchlist symbol to analyzing, EvaluateEntry decides analyzing → active
// via an ordered strategy table, and EvaluateExit walks the exit ladder for
// active trades. All evaluators are pure functions over one symbol's
// indicator snapshot; a nil snapshot is the caller's signal to skip.
package signal

import "tradepilot/internal/model"

// EntryContext carries the per-cycle inputs a strategy may need beyond the
// symbol's own snapshot.
type EntryContext struct {
	Profile model.RiskProfile

	// RefMomentum is the 10-bar momentum of the reference symbol (BTC),
	// consumed by the correlation hedge strategy.
	RefMomentum float64

	// HedgeSymbol marks the one designated hedge asset on the board.
	HedgeSymbol bool
}

// EntryDecision is the outcome of EvaluateEntry.
type EntryDecision struct {
	Direction model.Direction
	Strategy  string
	Reason    string
}

// nearPct reports whether a is within pct percent of b.
func nearPct(a, b, pct float64) bool {
	if b == 0 {
		return false
	}
	diff := (a - b) / b * 100
	if diff < 0 {
		diff = -diff
	}
	return diff <= pct
}
