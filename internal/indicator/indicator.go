// Package indicator computes technical indicators from candle series.
//
// Every function here is pure: it takes an immutable series and returns a
// value plus an ok flag. ok=false means the series is shorter than the
// required window — callers must treat that as "insufficient data, skip
// this symbol this cycle", never as zero.
package indicator

import (
	"tradepilot/internal/model"
)

// MinSamples is the series length required for a full snapshot.
// SMA(50)+prev needs 51 bars, MACD(12,26,9) needs 34, ADX(14) needs 28.
const MinSamples = 60

// Snapshot holds every derived indicator for one symbol at one cycle.
// It is recomputed each cycle and never mutated in place.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"` // last close

	RSI     float64 `json:"rsi"`
	PrevRSI float64 `json:"prev_rsi"` // RSI one bar ago, for crossing exits

	SMA20     float64 `json:"sma20"`
	SMA50     float64 `json:"sma50"`
	PrevSMA20 float64 `json:"prev_sma20"`
	PrevSMA50 float64 `json:"prev_sma50"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	ATR float64 `json:"atr"`

	BBUpper   float64 `json:"bb_upper"`
	BBMiddle  float64 `json:"bb_middle"`
	BBLower   float64 `json:"bb_lower"`
	PercentB  float64 `json:"percent_b"`
	Bandwidth float64 `json:"bandwidth"`

	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`

	VWAP        float64 `json:"vwap"`
	VolumeRatio float64 `json:"volume_ratio"`

	Momentum10 float64 `json:"momentum_10"` // % change over the last 10 bars
	Momentum1  float64 `json:"momentum_4h"` // % change over the single most recent bar

	FundingRate *float64 `json:"funding_rate,omitempty"` // external, nullable

	Confluence Confluence `json:"confluence"`
}

// ATRPct returns ATR as a percent of a reference price.
func (s *Snapshot) ATRPct(price float64) float64 {
	if price == 0 {
		return 0
	}
	return s.ATR / price * 100
}

// Compute builds a full snapshot for one symbol, or nil when the series is
// too short or any required indicator cannot be computed. funding may be nil.
func Compute(symbol string, series model.Series, funding *float64) *Snapshot {
	if len(series) < MinSamples {
		return nil
	}
	closes := series.Closes()
	prevCloses := closes[:len(closes)-1]

	rsi, ok1 := RSI(closes, 14)
	prevRSI, ok2 := RSI(prevCloses, 14)
	sma20, ok3 := SMA(closes, 20)
	sma50, ok4 := SMA(closes, 50)
	prevSMA20, ok5 := SMA(prevCloses, 20)
	prevSMA50, ok6 := SMA(prevCloses, 50)
	macd, ok7 := MACD(closes)
	atr, ok8 := ATR(series, 14)
	bb, ok9 := Bollinger(closes, 20, 2)
	adx, ok10 := ADX(series, 14)
	vwap, ok11 := VWAP(series, 24)
	volRatio, ok12 := VolumeRatio(series)
	mom10, ok13 := Momentum(closes, 10)
	mom1, ok14 := Momentum(closes, 1)

	for _, ok := range []bool{ok1, ok2, ok3, ok4, ok5, ok6, ok7, ok8, ok9, ok10, ok11, ok12, ok13, ok14} {
		if !ok {
			return nil
		}
	}

	snap := &Snapshot{
		Symbol:      symbol,
		Price:       series.LastClose(),
		RSI:         rsi,
		PrevRSI:     prevRSI,
		SMA20:       sma20,
		SMA50:       sma50,
		PrevSMA20:   prevSMA20,
		PrevSMA50:   prevSMA50,
		MACD:        macd.MACD,
		MACDSignal:  macd.Signal,
		MACDHist:    macd.Hist,
		ATR:         atr,
		BBUpper:     bb.Upper,
		BBMiddle:    bb.Middle,
		BBLower:     bb.Lower,
		PercentB:    bb.PercentB,
		Bandwidth:   bb.Bandwidth,
		ADX:         adx.ADX,
		PlusDI:      adx.PlusDI,
		MinusDI:     adx.MinusDI,
		VWAP:        vwap,
		VolumeRatio: volRatio,
		Momentum10:  mom10,
		Momentum1:   mom1,
		FundingRate: funding,
	}
	snap.Confluence = Score(snap)
	return snap
}
