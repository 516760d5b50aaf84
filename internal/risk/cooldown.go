package risk

import (
	"time"

	"tradepilot/internal/model"
)

// ExtremeMovePct is the single-bar move that overrides a cooldown.
const ExtremeMovePct = 5.0

// CooldownOK reports whether a symbol may make a state-changing move.
// A move is blocked until the profile's cooldown has elapsed since the
// symbol's last move, unless the current bar moved more than
// ExtremeMovePct in either direction.
func CooldownOK(s *EngineState, symbol string, profile model.RiskProfile, momentum1 float64, now time.Time) (bool, string) {
	last, seen := s.LastMoves[symbol]
	if !seen {
		return true, ""
	}
	elapsed := now.Sub(last)
	if elapsed >= profile.Cooldown {
		return true, ""
	}
	if momentum1 >= ExtremeMovePct || momentum1 <= -ExtremeMovePct {
		return true, "extreme move override"
	}
	return false, "cooldown active"
}
