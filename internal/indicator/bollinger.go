package indicator

import "math"

// Bands holds Bollinger Band levels and derived measures.
type Bands struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64 // 0 = lower band, 1 = upper band
	// Bandwidth is the band width as a percent of the middle band.
	Bandwidth float64
}

// Bollinger computes bands from the population standard deviation of the
// last `period` closes: upper/lower = SMA ± mult·σ.
func Bollinger(closes []float64, period int, mult float64) (Bands, bool) {
	mid, ok := SMA(closes, period)
	if !ok {
		return Bands{}, false
	}

	window := closes[len(closes)-period:]
	var variance float64
	for _, v := range window {
		d := v - mid
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(period))

	b := Bands{
		Upper:  mid + mult*sigma,
		Middle: mid,
		Lower:  mid - mult*sigma,
	}
	if span := b.Upper - b.Lower; span > 0 {
		b.PercentB = (closes[len(closes)-1] - b.Lower) / span
	}
	if mid != 0 {
		b.Bandwidth = (2 * mult * sigma) / mid * 100
	}
	return b, true
}
