package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/indicator"
	"tradepilot/internal/model"
)

func profile(t *testing.T, name string) model.RiskProfile {
	t.Helper()
	profiles, err := model.Profiles("")
	require.NoError(t, err)
	p, ok := profiles[name]
	require.True(t, ok, "unknown profile %s", name)
	return p
}

// quietSnapshot matches no entry strategy and no promotion signal.
func quietSnapshot() *indicator.Snapshot {
	return &indicator.Snapshot{
		Symbol: "ETHUSDT",
		Price:  2000,
		RSI:    50, PrevRSI: 50,
		SMA20: 2100, SMA50: 2050, PrevSMA20: 2100, PrevSMA50: 2050,
		MACDHist: 0, ATR: 40,
		BBUpper: 2200, BBMiddle: 2000, BBLower: 1800, PercentB: 0.5,
		ADX: 22, PlusDI: 20, MinusDI: 20,
		VWAP: 2000, VolumeRatio: 1.0,
		Momentum10: 0, Momentum1: 0,
	}
}

// ── entry strategies ────────────────────────────────────────

func TestEntry_OversoldBounce(t *testing.T) {
	s := quietSnapshot()
	s.RSI = 28
	s.SMA20 = 2030 // price 2000 is within 2%
	s.MACDHist = 0.1

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "balanced")})
	require.NotNil(t, dec)
	assert.Equal(t, model.Long, dec.Direction)
	assert.Equal(t, "oversold_bounce", dec.Strategy)
}

func TestEntry_FirstMatchWins(t *testing.T) {
	// Matches both oversold_bounce and deep_oversold; the table order
	// reports oversold_bounce.
	s := quietSnapshot()
	s.RSI = 18
	s.SMA20 = 2010
	s.MACDHist = 0.2

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "balanced")})
	require.NotNil(t, dec)
	assert.Equal(t, "oversold_bounce", dec.Strategy)
}

func TestEntry_GoldenCross(t *testing.T) {
	s := quietSnapshot()
	s.PrevSMA20, s.PrevSMA50 = 2040, 2050
	s.SMA20, s.SMA50 = 2060, 2050

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "safe")})
	require.NotNil(t, dec)
	assert.Equal(t, "golden_cross", dec.Strategy)
	assert.Equal(t, model.Long, dec.Direction)
}

func TestEntry_NoMatchReturnsNil(t *testing.T) {
	dec := EvaluateEntry(quietSnapshot(), EntryContext{Profile: profile(t, "balanced")})
	assert.Nil(t, dec)
}

func TestEntry_ShortsDisabledUnderSafe(t *testing.T) {
	s := quietSnapshot()
	s.RSI = 85
	s.MACDHist = -0.3

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "safe")})
	assert.Nil(t, dec, "safe profile must never short")
}

func TestEntry_OverboughtRejectionShort(t *testing.T) {
	s := quietSnapshot()
	s.RSI = 85
	s.MACDHist = -0.3
	s.Momentum10 = 4 // mean-reversion short is not momentum gated

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "balanced")})
	require.NotNil(t, dec)
	assert.Equal(t, model.Short, dec.Direction)
	assert.Equal(t, "overbought_rejection", dec.Strategy)
}

func TestEntry_DeathCrossRequiresFallingMomentum(t *testing.T) {
	s := quietSnapshot()
	s.PrevSMA20, s.PrevSMA50 = 2060, 2050
	s.SMA20, s.SMA50 = 2040, 2050

	ctx := EntryContext{Profile: profile(t, "balanced")}

	s.Momentum10 = 1 // above the -3 threshold, gate blocks
	assert.Nil(t, EvaluateEntry(s, ctx))

	s.Momentum10 = -4
	dec := EvaluateEntry(s, ctx)
	require.NotNil(t, dec)
	assert.Equal(t, "death_cross", dec.Strategy)
}

func TestEntry_MomentumCatchIsBoldOnly(t *testing.T) {
	s := quietSnapshot()
	s.Momentum1 = 5
	s.VolumeRatio = 2.5

	assert.Nil(t, EvaluateEntry(s, EntryContext{Profile: profile(t, "balanced")}))

	dec := EvaluateEntry(s, EntryContext{Profile: profile(t, "bold")})
	require.NotNil(t, dec)
	assert.Equal(t, "momentum_catch", dec.Strategy)
}

func TestEntry_CorrelationHedge(t *testing.T) {
	s := quietSnapshot()
	s.Symbol = "PAXGUSDT"

	ctx := EntryContext{Profile: profile(t, "balanced"), HedgeSymbol: true, RefMomentum: -4.2}
	dec := EvaluateEntry(s, ctx)
	require.NotNil(t, dec)
	assert.Equal(t, "correlation_hedge", dec.Strategy)

	// Same conditions on a non-hedge symbol never fire the hedge strategy.
	ctx.HedgeSymbol = false
	assert.Nil(t, EvaluateEntry(s, ctx))
}

func TestEntry_NilSnapshotSkipped(t *testing.T) {
	assert.Nil(t, EvaluateEntry(nil, EntryContext{Profile: profile(t, "bold")}))
}

// ── watchlist promotion ─────────────────────────────────────

func TestPromote_StrongRSICountsDouble(t *testing.T) {
	s := quietSnapshot()
	s.RSI = 22 // balanced RSILong=30, 22 <= 25 → strong
	s.SMA20 = 2020
	s.VolumeRatio = 1.8

	p := ShouldPromote(s, profile(t, "balanced"))
	// rsi_strong(2) + sma20_proximity(1) + volume_surge(1) = 4
	assert.Equal(t, 4, p.Weight)
	assert.True(t, p.Promote)
	assert.Contains(t, p.Signals, "rsi_strong")
}

func TestPromote_BelowThresholdHolds(t *testing.T) {
	s := quietSnapshot()
	s.VolumeRatio = 1.8 // one signal only

	p := ShouldPromote(s, profile(t, "balanced"))
	assert.False(t, p.Promote)
	assert.Equal(t, 1, p.Weight)
}

func TestPromote_TrendRegimeBoostsMomentum(t *testing.T) {
	s := quietSnapshot()
	s.ADX = 28
	s.Momentum10 = 6

	p := ShouldPromote(s, profile(t, "bold"))
	// momentum(1) + momentum_trend_boost(1) ≥ bold minimum of 2
	assert.True(t, p.Promote)
	assert.Contains(t, p.Signals, "momentum_trend_boost")
}

func TestPromote_RangeRegimeBoostsBands(t *testing.T) {
	s := quietSnapshot()
	s.ADX = 15
	s.PercentB = 0.05
	s.VWAP = 2100 // price 2000 is 4.7% below

	p := ShouldPromote(s, profile(t, "bold"))
	assert.True(t, p.Promote)
	assert.Contains(t, p.Signals, "bb_extreme")
	assert.Contains(t, p.Signals, "vwap_deviation")
}

func TestPromote_BarSpikeOnlyForBold(t *testing.T) {
	s := quietSnapshot()
	s.Momentum1 = 4

	assert.Equal(t, 0, ShouldPromote(s, profile(t, "balanced")).Weight)
	p := ShouldPromote(s, profile(t, "bold"))
	assert.Contains(t, p.Signals, "bar_spike")
}

func TestPromote_NilSnapshot(t *testing.T) {
	p := ShouldPromote(nil, profile(t, "safe"))
	assert.False(t, p.Promote)
}

// ── exits ───────────────────────────────────────────────────

func longTrade() *model.TradeRecord {
	return &model.TradeRecord{
		ID: "t1", Symbol: "ETHUSDT",
		Direction: model.Long, Status: model.StatusActive,
		EntryPrice: 100, PositionSize: 500,
		Meta: model.TradeMeta{ATRAtEntry: 4},
	}
}

func exitSnapshot(price float64) *indicator.Snapshot {
	s := quietSnapshot()
	s.Price = price
	s.ATR = 4
	return s
}

func TestExit_PartialTakeFiresOnceAt2ATR(t *testing.T) {
	tr := longTrade()
	dec := EvaluateExit(tr, exitSnapshot(109)) // +9% ≥ 2×4%

	assert.Equal(t, PartialTake, dec.Action)
	require.NotNil(t, dec.Meta)
	assert.True(t, dec.Meta.PartialTaken)

	// Once taken, the same profit level does not re-trigger.
	tr.Meta = *dec.Meta
	dec2 := EvaluateExit(tr, exitSnapshot(109))
	assert.NotEqual(t, PartialTake, dec2.Action)
}

func TestExit_Stage3TrailingStop(t *testing.T) {
	tr := longTrade()
	tr.Meta.PartialTaken = true

	// entry=100, price=112, ATR=4 → 3×ATR profit → stage 3, stop 112-3=109.
	dec := EvaluateExit(tr, exitSnapshot(112))
	assert.Equal(t, Hold, dec.Action)
	require.NotNil(t, dec.Meta)
	assert.Equal(t, 3, dec.Meta.TrailingStage)
	assert.InDelta(t, 109, dec.Meta.TrailingStop, 0.0001)

	// Price later falls to the stop: exit fires with win=true.
	tr.Meta = *dec.Meta
	dec2 := EvaluateExit(tr, exitSnapshot(109))
	assert.Equal(t, Exit, dec2.Action)
	assert.True(t, dec2.Win)
}

func TestExit_TrailingStopNeverLoosens_Long(t *testing.T) {
	tr := longTrade()
	tr.Meta.PartialTaken = true

	prices := []float64{106.5, 108, 112, 110, 113}
	lastStop := 0.0
	for _, price := range prices {
		dec := EvaluateExit(tr, exitSnapshot(price))
		if dec.Meta != nil {
			tr.Meta = *dec.Meta
		}
		if dec.Action == Exit {
			break
		}
		require.GreaterOrEqual(t, tr.Meta.TrailingStop, lastStop,
			"trailing stop loosened at price %.1f", price)
		lastStop = tr.Meta.TrailingStop
	}
	assert.Greater(t, lastStop, 0.0)
}

func TestExit_TrailingStopNeverLoosens_Short(t *testing.T) {
	tr := longTrade()
	tr.Direction = model.Short
	tr.Meta.PartialTaken = true

	prices := []float64{93.5, 92, 88, 90, 87}
	lastStop := 1e18
	for _, price := range prices {
		dec := EvaluateExit(tr, exitSnapshot(price))
		if dec.Meta != nil {
			tr.Meta = *dec.Meta
		}
		if dec.Action == Exit {
			break
		}
		if tr.Meta.TrailingStop > 0 {
			require.LessOrEqual(t, tr.Meta.TrailingStop, lastStop,
				"short trailing stop loosened at price %.1f", price)
			lastStop = tr.Meta.TrailingStop
		}
	}
	assert.Less(t, lastStop, 1e18)
}

func TestExit_HardStopLoss(t *testing.T) {
	tr := longTrade()
	// stop = clamp(2×4%, 2, 8) = 8%; -9% breaches it. No trend evidence.
	dec := EvaluateExit(tr, exitSnapshot(91))
	assert.Equal(t, Exit, dec.Action)
	assert.False(t, dec.Win)
}

func TestExit_HardStopFlipsOnOpposingTrend(t *testing.T) {
	tr := longTrade()
	s := exitSnapshot(91)
	s.ADX = 32
	s.MinusDI, s.PlusDI = 30, 12
	s.MACDHist = -0.8
	s.RSI = 45

	dec := EvaluateExit(tr, s)
	assert.Equal(t, Flip, dec.Action)
	assert.Equal(t, model.Short, dec.FlipDirection)
	assert.False(t, dec.Win)
}

func TestExit_NoFlipWhenRSIExtreme(t *testing.T) {
	tr := longTrade()
	s := exitSnapshot(91)
	s.ADX = 32
	s.MinusDI, s.PlusDI = 30, 12
	s.MACDHist = -0.8
	s.RSI = 22 // already oversold, shorting here is chasing

	dec := EvaluateExit(tr, s)
	assert.Equal(t, Exit, dec.Action)
}

func TestExit_RSIReversalInProfit(t *testing.T) {
	tr := longTrade()
	s := exitSnapshot(104)
	s.PrevRSI = 73
	s.RSI = 67

	dec := EvaluateExit(tr, s)
	assert.Equal(t, Exit, dec.Action)
	assert.True(t, dec.Win)
}

func TestExit_MACDReversalInLoss(t *testing.T) {
	tr := longTrade()
	s := exitSnapshot(98.5) // -1.5%, above the hard stop
	s.MACDHist = -1.4

	dec := EvaluateExit(tr, s)
	assert.Equal(t, Exit, dec.Action)
	assert.False(t, dec.Win)
}

func TestExit_NilSnapshotHolds(t *testing.T) {
	dec := EvaluateExit(longTrade(), nil)
	assert.Equal(t, Hold, dec.Action)
}

func TestExit_MissingEntryPriceHolds(t *testing.T) {
	tr := longTrade()
	tr.EntryPrice = 0
	dec := EvaluateExit(tr, exitSnapshot(112))
	assert.Equal(t, Hold, dec.Action)
}

func TestInitialStops_ClampsAndMirrors(t *testing.T) {
	// Tiny ATR: stop floors at 2%, target at 2×ATR.
	stop, target := InitialStops(100, 0.5, model.Long)
	assert.InDelta(t, 98.0, stop, 1e-9)
	assert.InDelta(t, 101.0, target, 1e-9)

	// Huge ATR: stop caps at 8%, target stays uncapped.
	stop, target = InitialStops(100, 10, model.Long)
	assert.InDelta(t, 92.0, stop, 1e-9)
	assert.InDelta(t, 120.0, target, 1e-9)

	// Shorts mirror above/below entry.
	stop, target = InitialStops(100, 2, model.Short)
	assert.InDelta(t, 104.0, stop, 1e-9)
	assert.InDelta(t, 96.0, target, 1e-9)

	// ATR unknown: stop still floors, no target.
	stop, target = InitialStops(100, 0, model.Long)
	assert.InDelta(t, 98.0, stop, 1e-9)
	assert.Zero(t, target)
}

// ── strategy table invariants ───────────────────────────────

func TestStrategyTable_OrderIsFixed(t *testing.T) {
	names := StrategyNames()
	require.Equal(t, 17, len(names))
	assert.Equal(t, "oversold_bounce", names[0])
	assert.Equal(t, "golden_cross", names[1])
	assert.Equal(t, "overbought_rejection", names[10], "long strategies must rank above shorts")
	assert.Equal(t, "trend_surfer_short", names[16])
}
