package indicator

import (
	"math"

	"tradepilot/internal/model"
)

// ADXResult bundles trend strength and directional indicators.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX computes the Average Directional Index with Wilder smoothing:
// seed = sum of the first `period` raw TR/+DM/−DM values, then
// smoothed = smoothed − smoothed/period + new. DI = smoothed DM / smoothed
// TR · 100, DX = |+DI − −DI| / (+DI + −DI) · 100, and ADX is the Wilder
// average of DX seeded by a simple average of the first `period` DX values.
func ADX(series model.Series, period int) (ADXResult, bool) {
	// First DX appears at bar `period`, ADX seed needs `period` DX values.
	if len(series) < 2*period {
		return ADXResult{}, false
	}

	n := len(series)
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(series[i], series[i-1].Close)
		up := series[i].High - series[i-1].High
		down := series[i-1].Low - series[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder seed over bars 1..period.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	p := float64(period)
	var plusDI, minusDI float64
	var dxSeries []float64

	di := func() (float64, float64) {
		if smTR == 0 {
			return 0, 0
		}
		return smPlus / smTR * 100, smMinus / smTR * 100
	}

	plusDI, minusDI = di()
	dxSeries = append(dxSeries, dx(plusDI, minusDI))

	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/p + tr[i]
		smPlus = smPlus - smPlus/p + plusDM[i]
		smMinus = smMinus - smMinus/p + minusDM[i]
		plusDI, minusDI = di()
		dxSeries = append(dxSeries, dx(plusDI, minusDI))
	}

	if len(dxSeries) < period {
		return ADXResult{}, false
	}

	// ADX: simple-average seed of the first `period` DX values, then Wilder.
	var adx float64
	for _, v := range dxSeries[:period] {
		adx += v
	}
	adx /= p
	for _, v := range dxSeries[period:] {
		adx = (adx*(p-1) + v) / p
	}

	return ADXResult{ADX: adx, PlusDI: plusDI, MinusDI: minusDI}, true
}

func dx(plusDI, minusDI float64) float64 {
	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / sum * 100
}
