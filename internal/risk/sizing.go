package risk

import "tradepilot/internal/indicator"

// Position sizing constants: 20% of balance base, capped at 25%, with a
// confidence multiplier clamped to [0.5, 1.25].
const (
	baseSizePct = 0.20
	maxSizePct  = 0.25
	minMult     = 0.50
	maxMult     = 1.25
)

// lowConviction strategies get a sizing haircut.
var lowConviction = map[string]bool{
	"vwap_reversion":       true,
	"vwap_reversion_short": true,
	"range_breakout":       true,
	"range_breakout_short": true,
	"qfl_flash_crash":      true,
}

// PositionSize computes the quote-currency size for a new trade.
// The result is always ≤ 25% of balance, and halved while the loss-streak
// cooldown is active.
func PositionSize(balance float64, snap *indicator.Snapshot, strategy string, lossCooldown bool) float64 {
	base := balance * baseSizePct

	mult := 1.0
	if snap.RSI < 20 || snap.RSI > 80 {
		mult += 0.15 // deep extremity, strong reversion setup
	}
	if snap.VolumeRatio > 2 {
		mult += 0.10
	}
	if snap.ADX > 30 {
		mult += 0.10
	}
	if snap.PercentB < 0.05 || snap.PercentB > 0.95 {
		mult += 0.05
	}
	if lowConviction[strategy] {
		mult -= 0.30
	}
	if snap.VolumeRatio < 0.8 {
		mult -= 0.25
	}

	if mult < minMult {
		mult = minMult
	}
	if mult > maxMult {
		mult = maxMult
	}

	size := base * mult
	if ceiling := balance * maxSizePct; size > ceiling {
		size = ceiling
	}
	if lossCooldown {
		size /= 2
	}
	return size
}
