package indicator

import (
	"math"

	"tradepilot/internal/model"
)

// trueRange is max(high−low, |high−prevClose|, |low−prevClose|).
func trueRange(c model.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR returns the simple moving average of the last `period` true-range
// values. Needs period+1 candles for the first previous close.
func ATR(series model.Series, period int) (float64, bool) {
	if len(series) < period+1 {
		return 0, false
	}
	window := series[len(series)-period-1:]
	var sum float64
	for i := 1; i < len(window); i++ {
		sum += trueRange(window[i], window[i-1].Close)
	}
	return sum / float64(period), true
}
