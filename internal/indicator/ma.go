package indicator

// SMA returns the simple moving average of the last `period` values.
func SMA(values []float64, period int) (float64, bool) {
	if len(values) < period || period <= 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average of the values.
// Seed = simple average of the first `period` values, then exponential
// smoothing with k = 2/(period+1).
func EMA(values []float64, period int) (float64, bool) {
	series := emaSeries(values, period)
	if series == nil {
		return 0, false
	}
	return series[len(series)-1], true
}

// emaSeries returns the EMA value for every bar from index period-1 on.
// Result index 0 corresponds to values index period-1.
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// MACDResult bundles the MACD line, its signal line, and the histogram.
type MACDResult struct {
	MACD   float64
	Signal float64
	Hist   float64
}

// MACD computes EMA(12) − EMA(26) of closes, a 9-period EMA signal over the
// MACD series, and the histogram (MACD − signal).
func MACD(closes []float64) (MACDResult, bool) {
	const (
		fast   = 12
		slow   = 26
		signal = 9
	)
	if len(closes) < slow+signal {
		return MACDResult{}, false
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	// Align: slowSeries starts (slow-fast) bars later than fastSeries.
	offset := slow - fast
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := emaSeries(macdLine, signal)
	if signalSeries == nil {
		return MACDResult{}, false
	}

	macd := macdLine[len(macdLine)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACDResult{MACD: macd, Signal: sig, Hist: macd - sig}, true
}
