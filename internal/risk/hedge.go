package risk

import (
	"fmt"

	"tradepilot/internal/indicator"
	"tradepilot/internal/model"
)

// HedgeAdvice emits a non-binding hedge suggestion when the book is
// long-only (≥3 active longs, zero shorts) and at least two bearish signals
// hold for the reference symbol. The engine never auto-executes this.
func HedgeAdvice(trades []model.TradeRecord, ref *indicator.Snapshot) (string, bool) {
	if ref == nil {
		return "", false
	}

	var longs, shorts int
	for _, t := range trades {
		if t.Status != model.StatusActive {
			continue
		}
		if t.Direction == model.Long {
			longs++
		} else {
			shorts++
		}
	}
	if longs < 3 || shorts != 0 {
		return "", false
	}

	bearish := 0
	if ref.MACDHist < 0 {
		bearish++
	}
	if ref.Momentum10 < 0 {
		bearish++
	}
	if ref.MinusDI > ref.PlusDI {
		bearish++
	}
	if bearish < 2 {
		return "", false
	}

	msg := fmt.Sprintf("book is %d longs / 0 shorts and %s shows %d of 3 bearish signals; consider a hedge position",
		longs, ref.Symbol, bearish)
	return msg, true
}
