package risk

import (
	"fmt"

	"tradepilot/internal/model"
)

// MaxGroupExposure is the number of active same-group, same-direction
// trades beyond which new entries are blocked.
const MaxGroupExposure = 2

// CheckCorrelation decides whether a new entry would over-concentrate a
// correlation group. Only active trades count; opposite-direction trades in
// the same group are fine.
func CheckCorrelation(trades []model.TradeRecord, symbol string, dir model.Direction) (bool, string) {
	group := model.GroupFor(symbol)
	if group == model.GroupUnknown {
		return true, ""
	}

	count := 0
	for _, t := range trades {
		if t.Status != model.StatusActive {
			continue
		}
		if t.Direction != dir {
			continue
		}
		if model.GroupFor(t.Symbol) == group {
			count++
		}
	}
	if count >= MaxGroupExposure {
		return false, fmt.Sprintf("correlation guard: %d active %s trades in group %s", count, dir, group)
	}
	return true, ""
}
