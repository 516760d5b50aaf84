package signal

import (
	"math"

	"tradepilot/internal/indicator"
	"tradepilot/internal/model"
)

// Promotion is the outcome of the watchlist evaluation.
type Promotion struct {
	Promote bool
	Weight  int
	Signals []string
}

// ShouldPromote accumulates a weighted signal count for a watchlist symbol.
// Strong RSI deviation counts double, moderate counts once; SMA20
// proximity, volume surge, and momentum each add one. The ADX regime
// reclassifies: a trend regime (ADX > 25) boosts SMA-alignment and
// momentum signals, a range regime (ADX < 20) boosts Bollinger and VWAP
// deviation signals. Promotion requires the profile's minimum count.
func ShouldPromote(s *indicator.Snapshot, profile model.RiskProfile) Promotion {
	if s == nil {
		return Promotion{}
	}

	var p Promotion
	add := func(w int, name string) {
		p.Weight += w
		p.Signals = append(p.Signals, name)
	}

	trend := s.ADX > 25
	ranging := s.ADX < 20

	// RSI deviation: strong (5 beyond the profile threshold) counts double.
	switch {
	case s.RSI <= profile.RSILong-5 || s.RSI >= profile.RSIShort+5:
		add(2, "rsi_strong")
	case s.RSI <= profile.RSILong || s.RSI >= profile.RSIShort:
		add(1, "rsi")
	}

	if nearPct(s.Price, s.SMA20, 2) {
		add(1, "sma20_proximity")
	}

	if s.VolumeRatio > 1.5 {
		add(1, "volume_surge")
	}

	if math.Abs(s.Momentum10) >= 5 {
		add(1, "momentum")
		if trend {
			add(1, "momentum_trend_boost")
		}
	}

	if profile.BoldSignals && math.Abs(s.Momentum1) >= 3 {
		add(1, "bar_spike")
	}

	if trend && s.SMA20 > s.SMA50 && s.PlusDI > s.MinusDI {
		add(1, "trend_alignment")
	}

	if ranging {
		if s.PercentB <= 0.1 || s.PercentB >= 0.9 {
			add(1, "bb_extreme")
		}
		if s.VWAP > 0 && math.Abs(s.Price-s.VWAP)/s.VWAP*100 >= 3 {
			add(1, "vwap_deviation")
		}
	}

	p.Promote = p.Weight >= profile.MinSignals
	return p
}
