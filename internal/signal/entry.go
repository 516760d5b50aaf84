package signal

import (
	"tradepilot/internal/indicator"
	"tradepilot/internal/model"
)

// entryStrategy is one tagged predicate in the ordered strategy table.
type entryStrategy struct {
	name      string
	direction model.Direction
	boldOnly  bool // only evaluated under the bold profile
	short     bool // requires AllowShorts
	// momentumGated shorts additionally require the 10-bar momentum to sit
	// below the profile's short-momentum threshold. Mean-reversion shorts
	// are exempt: they fire against rising momentum by design of the setup.
	momentumGated bool
	reason        string
	match         func(s *indicator.Snapshot, ctx EntryContext) bool
}

// entryStrategies is evaluated top to bottom; the first match wins and is
// the reported entry reason. Long strategies rank above shorts. The order
// is fixed and load-bearing: tests pin it.
var entryStrategies = []entryStrategy{
	{
		name: "oversold_bounce", direction: model.Long,
		reason: "RSI oversold near SMA20 support with MACD confirmation",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.RSI < ctx.Profile.RSILong && nearPct(s.Price, s.SMA20, 2) && s.MACDHist > 0
		},
	},
	{
		name: "golden_cross", direction: model.Long,
		reason: "SMA20 crossed above SMA50",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.PrevSMA20 <= s.PrevSMA50 && s.SMA20 > s.SMA50
		},
	},
	{
		name: "deep_oversold", direction: model.Long,
		reason: "RSI below 20, capitulation zone",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.RSI < 20
		},
	},
	{
		name: "momentum_catch", direction: model.Long, boldOnly: true,
		reason: "strong single-bar thrust on elevated volume",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.Momentum1 > 4 && s.VolumeRatio > 2
		},
	},
	{
		name: "bollinger_bounce", direction: model.Long,
		reason: "close pinned to the lower Bollinger band while oversold",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.PercentB < 0.05 && s.RSI < 35
		},
	},
	{
		name: "range_breakout", direction: model.Long,
		reason: "breakout above the upper band out of a low-ADX range",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.ADX < 20 && s.Price > s.BBUpper && s.VolumeRatio > 1.8
		},
	},
	{
		name: "vwap_reversion", direction: model.Long,
		reason: "price stretched below VWAP, reversion setup",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.VWAP > 0 && s.Price < s.VWAP*0.97 && s.RSI < 40
		},
	},
	{
		name: "trend_surfer", direction: model.Long,
		reason: "established uptrend with room before overbought",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.ADX > 30 && s.PlusDI > s.MinusDI && s.MACDHist > 0 && s.RSI < 60
		},
	},
	{
		name: "correlation_hedge", direction: model.Long,
		reason: "market-wide weakness, rotating into the hedge asset",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return ctx.HedgeSymbol && ctx.RefMomentum < -3
		},
	},
	{
		name: "qfl_flash_crash", direction: model.Long,
		reason: "flash-crash bar into oversold, quick-fingers bounce",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.Momentum1 < -6 && s.RSI < 30
		},
	},

	// Short side. Only reached when the profile allows shorting.
	{
		name: "overbought_rejection", direction: model.Short, short: true, momentumGated: false,
		reason: "RSI overbought with MACD rolling over",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.RSI > ctx.Profile.RSIShort && s.MACDHist < 0
		},
	},
	{
		name: "death_cross", direction: model.Short, short: true, momentumGated: true,
		reason: "SMA20 crossed below SMA50",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.PrevSMA20 >= s.PrevSMA50 && s.SMA20 < s.SMA50
		},
	},
	{
		name: "bearish_breakdown", direction: model.Short, short: true, boldOnly: true, momentumGated: true,
		reason: "hard single-bar breakdown on elevated volume",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.Momentum1 < -4 && s.VolumeRatio > 2
		},
	},
	{
		name: "bollinger_bounce_short", direction: model.Short, short: true,
		reason: "close pinned to the upper Bollinger band while overbought",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.PercentB > 0.95 && s.RSI > 65
		},
	},
	{
		name: "range_breakout_short", direction: model.Short, short: true,
		reason: "breakdown below the lower band out of a low-ADX range",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.ADX < 20 && s.Price < s.BBLower && s.VolumeRatio > 1.8
		},
	},
	{
		name: "vwap_reversion_short", direction: model.Short, short: true,
		reason: "price stretched above VWAP, reversion setup",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.VWAP > 0 && s.Price > s.VWAP*1.03 && s.RSI > 60
		},
	},
	{
		name: "trend_surfer_short", direction: model.Short, short: true, momentumGated: true,
		reason: "established downtrend with room before oversold",
		match: func(s *indicator.Snapshot, ctx EntryContext) bool {
			return s.ADX > 30 && s.MinusDI > s.PlusDI && s.MACDHist < 0 && s.RSI > 40
		},
	},
}

// StrategyNames returns the fixed evaluation order, for the review report.
func StrategyNames() []string {
	out := make([]string, len(entryStrategies))
	for i, st := range entryStrategies {
		out[i] = st.name
	}
	return out
}

// EvaluateEntry runs the strategy table against one snapshot. Returns nil
// when no strategy matches.
func EvaluateEntry(s *indicator.Snapshot, ctx EntryContext) *EntryDecision {
	if s == nil {
		return nil
	}
	for _, st := range entryStrategies {
		if st.boldOnly && !ctx.Profile.BoldSignals {
			continue
		}
		if st.short {
			if !ctx.Profile.AllowShorts {
				continue
			}
			if st.momentumGated && s.Momentum10 > ctx.Profile.ShortMomentum {
				continue
			}
		}
		if st.match(s, ctx) {
			return &EntryDecision{
				Direction: st.direction,
				Strategy:  st.name,
				Reason:    st.reason,
			}
		}
	}
	return nil
}
