package model

import "time"

// Candle represents one finalized OHLCV bar for a single symbol.
// Crypto prices span many orders of magnitude, so values stay float64
// rather than fixed-point.
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered candle sequence, oldest first, at a fixed timeframe.
// A series is owned by the cycle that fetched it and never mutated.
type Series []Candle

// Closes extracts the close prices in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Last returns the most recent candle. Callers must check Len first.
func (s Series) Last() Candle {
	return s[len(s)-1]
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}
