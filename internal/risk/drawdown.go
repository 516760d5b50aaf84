package risk

import (
	"log"
	"time"

	"tradepilot/internal/model"
)

// Monthly drawdown breaker: losing more than 12% from the month-start
// balance forces the safe profile for 48 hours.
const (
	drawdownLimitPct = 12.0
	drawdownLockout  = 48 * time.Hour
)

// ApplyDrawdown resolves the effective risk profile for this cycle.
// It rolls the month-start baseline on a new calendar month, honors an
// active lockout, restores the original profile when the lockout expires,
// and trips a new lockout when the monthly drawdown exceeds the limit.
//
// The returned bool reports whether state was mutated and must be saved
// immediately (a trip has to survive a crash).
func ApplyDrawdown(s *EngineState, profiles map[string]model.RiskProfile, requested model.RiskProfile, balance float64, now time.Time) (model.RiskProfile, bool) {
	mutated := false

	month := now.UTC().Format("2006-01")
	if s.Month != month {
		s.Month = month
		s.MonthStartBalance = balance
		mutated = true
		log.Printf("[risk] new month %s, baseline balance %.2f", month, balance)
	}

	if s.Drawdown != nil {
		if now.Sub(s.Drawdown.TriggeredAt) < drawdownLockout {
			// Still locked out: force safe regardless of the requested level.
			return model.Profile(profiles, "safe"), mutated
		}
		restored := model.Profile(profiles, s.Drawdown.RestoreProfile)
		s.Drawdown = nil
		mutated = true
		log.Printf("[risk] drawdown lockout expired, restoring profile %s", restored.Name)
		requested = restored
	}

	if s.MonthStartBalance > 0 {
		dd := (s.MonthStartBalance - balance) / s.MonthStartBalance * 100
		if dd > drawdownLimitPct {
			s.Drawdown = &DrawdownBreaker{TriggeredAt: now, RestoreProfile: requested.Name}
			log.Printf("[risk] monthly drawdown %.1f%% exceeds %.0f%%, forcing safe for %s",
				dd, drawdownLimitPct, drawdownLockout)
			return model.Profile(profiles, "safe"), true
		}
	}

	return requested, mutated
}
