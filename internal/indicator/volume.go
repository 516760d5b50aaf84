package indicator

import "tradepilot/internal/model"

// VWAP returns the volume-weighted typical price ((H+L+C)/3) over the last
// `window` bars. Falls back to ok=false when total volume is zero.
func VWAP(series model.Series, window int) (float64, bool) {
	if len(series) < window || window <= 0 {
		return 0, false
	}
	var pv, vol float64
	for _, c := range series[len(series)-window:] {
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}

// VolumeRatio compares the last bar's volume against the trailing average of
// every prior bar in the series.
func VolumeRatio(series model.Series) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	var sum float64
	for _, c := range series[:len(series)-1] {
		sum += c.Volume
	}
	avg := sum / float64(len(series)-1)
	if avg == 0 {
		return 0, false
	}
	return series.Last().Volume / avg, true
}

// Momentum returns the percent change of the close over the last n bars.
func Momentum(closes []float64, n int) (float64, bool) {
	if len(closes) < n+1 || n <= 0 {
		return 0, false
	}
	base := closes[len(closes)-1-n]
	if base == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - base) / base * 100, true
}
