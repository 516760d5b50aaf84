package indicator

import (
	"math"
	"testing"
	"time"

	"tradepilot/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// seriesFromCloses builds a series with a small fixed high/low spread around
// each close and unit volume.
func seriesFromCloses(closes ...float64) model.Series {
	s := make(model.Series, len(closes))
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s[i] = model.Candle{
			Symbol: "TESTUSDT",
			TS:     ts.Add(time.Duration(i) * 4 * time.Hour),
			Open:   c, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: 1,
		}
	}
	return s
}

// trendingSeries walks price up by step per bar with a real high/low range.
func trendingSeries(n int, start, step float64) model.Series {
	s := make(model.Series, n)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		s[i] = model.Candle{
			Symbol: "TESTUSDT",
			TS:     ts.Add(time.Duration(i) * 4 * time.Hour),
			Open:   price, High: price + step, Low: price - step/4, Close: price + step,
			Volume: 100 + float64(i),
		}
		price += step
	}
	return s
}

// choppySeries oscillates between two prices — no sustained direction.
func choppySeries(n int, base, amp float64) model.Series {
	s := make(model.Series, n)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := base
		if i%2 == 0 {
			c = base + amp
		}
		s[i] = model.Candle{
			Symbol: "TESTUSDT",
			TS:     ts.Add(time.Duration(i) * 4 * time.Hour),
			Open:   base, High: base + amp + 0.5, Low: base - 0.5, Close: c,
			Volume: 100,
		}
	}
	return s
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_MonotonicRise_Is100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI not ready with 20 closes")
	}
	assertClose(t, "RSI rising", rsi, 100, 0.0001)
}

func TestRSI_MonotonicFall_NearZero(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	rsi, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI not ready with 20 closes")
	}
	assertClose(t, "RSI falling", rsi, 0, 0.0001)
}

func TestRSI_HandCalculated(t *testing.T) {
	// Diffs over the trailing 4: +2, -1, +3, -2
	// avgGain = 5/4 = 1.25, avgLoss = 3/4 = 0.75, RS = 5/3
	// RSI = 100 - 100/(1+5/3) = 62.5
	closes := []float64{10, 12, 11, 14, 12}
	rsi, ok := RSI(closes, 4)
	if !ok {
		t.Fatal("RSI not ready")
	}
	assertClose(t, "RSI(4)", rsi, 62.5, 0.0001)
}

func TestRSI_InsufficientData(t *testing.T) {
	if _, ok := RSI([]float64{1, 2, 3}, 14); ok {
		t.Error("RSI reported ready with 3 closes")
	}
}

// ────────────────────────────────────────────────────────────
// SMA / EMA / MACD
// ────────────────────────────────────────────────────────────

func TestSMA_HandCalculated(t *testing.T) {
	// (104+103+105)/3 = 104
	sma, ok := SMA([]float64{100, 102, 104, 103, 105}, 3)
	if !ok {
		t.Fatal("SMA not ready")
	}
	assertClose(t, "SMA(3)", sma, 104, 0.0001)
}

func TestEMA_SeedIsSimpleAverage(t *testing.T) {
	// With exactly `period` values the EMA equals the SMA seed.
	ema, ok := EMA([]float64{10, 20, 30}, 3)
	if !ok {
		t.Fatal("EMA not ready")
	}
	assertClose(t, "EMA seed", ema, 20, 0.0001)
}

func TestEMA_SmoothingStep(t *testing.T) {
	// Seed = 20, k = 2/4 = 0.5, next = 40*0.5 + 20*0.5 = 30
	ema, ok := EMA([]float64{10, 20, 30, 40}, 3)
	if !ok {
		t.Fatal("EMA not ready")
	}
	assertClose(t, "EMA step", ema, 30, 0.0001)
}

func TestMACD_FlatSeries_IsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 500
	}
	m, ok := MACD(closes)
	if !ok {
		t.Fatal("MACD not ready with 60 closes")
	}
	assertClose(t, "MACD flat", m.MACD, 0, 0.0001)
	assertClose(t, "signal flat", m.Signal, 0, 0.0001)
	assertClose(t, "hist flat", m.Hist, 0, 0.0001)
}

func TestMACD_RisingSeries_PositiveHist(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i)) // accelerating rise
	}
	m, ok := MACD(closes)
	if !ok {
		t.Fatal("MACD not ready")
	}
	if m.MACD <= 0 {
		t.Errorf("MACD on rising series = %.4f, want > 0", m.MACD)
	}
	if m.Hist <= 0 {
		t.Errorf("histogram on accelerating rise = %.4f, want > 0", m.Hist)
	}
}

func TestMACD_InsufficientData(t *testing.T) {
	if _, ok := MACD(make([]float64, 33)); ok {
		t.Error("MACD reported ready with 33 closes, needs 35")
	}
}

// ────────────────────────────────────────────────────────────
// ATR / Bollinger
// ────────────────────────────────────────────────────────────

func TestATR_HandCalculated(t *testing.T) {
	// Fixed-spread candles (H = C+0.5, L = C-0.5) with closes 1 apart:
	// TR = max(1, |C+0.5-prevC|, |C-0.5-prevC|) = 1.5 for each +1 step.
	s := seriesFromCloses(100, 101, 102, 103)
	atr, ok := ATR(s, 3)
	if !ok {
		t.Fatal("ATR not ready")
	}
	assertClose(t, "ATR(3)", atr, 1.5, 0.0001)
}

func TestATR_InsufficientData(t *testing.T) {
	if _, ok := ATR(seriesFromCloses(100, 101), 14); ok {
		t.Error("ATR reported ready with 2 candles")
	}
}

func TestBollinger_HandCalculated(t *testing.T) {
	// Closes 10, 20, 30: SMA = 20, population σ = sqrt(200/3) ≈ 8.164966
	closes := []float64{10, 20, 30}
	bb, ok := Bollinger(closes, 3, 2)
	if !ok {
		t.Fatal("Bollinger not ready")
	}
	sigma := math.Sqrt(200.0 / 3.0)
	assertClose(t, "middle", bb.Middle, 20, 0.0001)
	assertClose(t, "upper", bb.Upper, 20+2*sigma, 0.0001)
	assertClose(t, "lower", bb.Lower, 20-2*sigma, 0.0001)
	// %B for close=30: (30 - lower) / (upper - lower)
	assertClose(t, "%B", bb.PercentB, (30-(20-2*sigma))/(4*sigma), 0.0001)
	assertClose(t, "bandwidth", bb.Bandwidth, 4*sigma/20*100, 0.0001)
}

func TestBollinger_FlatSeries(t *testing.T) {
	bb, ok := Bollinger([]float64{50, 50, 50, 50, 50}, 5, 2)
	if !ok {
		t.Fatal("Bollinger not ready")
	}
	assertClose(t, "flat upper", bb.Upper, 50, 0.0001)
	assertClose(t, "flat %B", bb.PercentB, 0, 0.0001) // zero-width band guard
}

// ────────────────────────────────────────────────────────────
// ADX
// ────────────────────────────────────────────────────────────

func TestADX_StrongTrend_Above25(t *testing.T) {
	s := trendingSeries(60, 100, 2)
	res, ok := ADX(s, 14)
	if !ok {
		t.Fatal("ADX not ready with 60 candles")
	}
	if res.ADX <= 25 {
		t.Errorf("ADX on strong trend = %.2f, want > 25", res.ADX)
	}
	if res.PlusDI <= res.MinusDI {
		t.Errorf("+DI (%.2f) should dominate -DI (%.2f) in an uptrend", res.PlusDI, res.MinusDI)
	}
}

func TestADX_ChoppySeries_Below20(t *testing.T) {
	s := choppySeries(60, 100, 1)
	res, ok := ADX(s, 14)
	if !ok {
		t.Fatal("ADX not ready")
	}
	if res.ADX >= 20 {
		t.Errorf("ADX on flat oscillation = %.2f, want < 20", res.ADX)
	}
}

func TestADX_InsufficientData(t *testing.T) {
	if _, ok := ADX(trendingSeries(20, 100, 1), 14); ok {
		t.Error("ADX reported ready with 20 candles, needs 28")
	}
}

// ────────────────────────────────────────────────────────────
// VWAP / volume / momentum
// ────────────────────────────────────────────────────────────

func TestVWAP_HandCalculated(t *testing.T) {
	s := model.Series{
		{High: 11, Low: 9, Close: 10, Volume: 1},  // typical 10
		{High: 21, Low: 19, Close: 20, Volume: 3}, // typical 20
	}
	// (10*1 + 20*3) / 4 = 17.5
	vwap, ok := VWAP(s, 2)
	if !ok {
		t.Fatal("VWAP not ready")
	}
	assertClose(t, "VWAP", vwap, 17.5, 0.0001)
}

func TestVolumeRatio_HandCalculated(t *testing.T) {
	s := model.Series{
		{Volume: 100}, {Volume: 200}, {Volume: 300}, {Volume: 600},
	}
	// prior avg = 200, last = 600 → ratio 3
	r, ok := VolumeRatio(s)
	if !ok {
		t.Fatal("VolumeRatio not ready")
	}
	assertClose(t, "volume ratio", r, 3, 0.0001)
}

func TestMomentum_HandCalculated(t *testing.T) {
	m, ok := Momentum([]float64{100, 0, 0, 110}, 3)
	if !ok {
		t.Fatal("Momentum not ready")
	}
	assertClose(t, "momentum(3)", m, 10, 0.0001)

	m1, ok := Momentum([]float64{100, 105}, 1)
	if !ok {
		t.Fatal("Momentum(1) not ready")
	}
	assertClose(t, "momentum(1)", m1, 5, 0.0001)
}

// ────────────────────────────────────────────────────────────
// Snapshot / confluence
// ────────────────────────────────────────────────────────────

func TestCompute_ShortSeries_ReturnsNil(t *testing.T) {
	s := trendingSeries(MinSamples-1, 100, 1)
	if snap := Compute("TESTUSDT", s, nil); snap != nil {
		t.Error("Compute returned a snapshot for a series below MinSamples")
	}
}

func TestCompute_FullSeries(t *testing.T) {
	s := trendingSeries(72, 100, 2)
	funding := 0.0001
	snap := Compute("TESTUSDT", s, &funding)
	if snap == nil {
		t.Fatal("Compute returned nil for a 72-bar series")
	}
	if snap.Price != s.LastClose() {
		t.Errorf("snapshot price = %.2f, want %.2f", snap.Price, s.LastClose())
	}
	if snap.FundingRate == nil || *snap.FundingRate != funding {
		t.Error("funding rate not carried into snapshot")
	}
	assertClose(t, "RSI of uptrend", snap.RSI, 100, 0.0001)
	if snap.ADX <= 25 {
		t.Errorf("ADX of strong uptrend = %.2f, want > 25", snap.ADX)
	}
}

func TestConfluence_UptrendVotesLong(t *testing.T) {
	s := trendingSeries(72, 100, 2)
	snap := Compute("TESTUSDT", s, nil)
	if snap == nil {
		t.Fatal("Compute returned nil")
	}
	// SMA cross, MACD hist, momentum, and DI dominance all vote bull;
	// RSI=100 and %B near the upper band vote bear.
	if snap.Confluence.Direction != "LONG" {
		t.Errorf("confluence direction = %s, want LONG", snap.Confluence.Direction)
	}
	if snap.Confluence.Score < 50 || snap.Confluence.Score > 100 {
		t.Errorf("confluence score out of range: %.1f", snap.Confluence.Score)
	}
}
