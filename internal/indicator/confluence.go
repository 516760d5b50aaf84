package indicator

// Confluence is the multi-signal bull/bear tally for a snapshot.
type Confluence struct {
	Score      float64 `json:"score"`      // 0–100, share of votes agreeing with Direction
	Direction  string  `json:"direction"`  // LONG, SHORT, or NEUTRAL
	Confluence int     `json:"confluence"` // |bull − bear|
}

// Score tallies bullish vs. bearish votes across RSI, the SMA20/50 cross,
// MACD histogram sign, momentum sign, DI dominance (only when ADX > 25),
// and Bollinger %B extremes.
func Score(s *Snapshot) Confluence {
	var bull, bear int

	if s.RSI < 35 {
		bull++
	} else if s.RSI > 65 {
		bear++
	}

	if s.SMA20 > s.SMA50 {
		bull++
	} else if s.SMA20 < s.SMA50 {
		bear++
	}

	if s.MACDHist > 0 {
		bull++
	} else if s.MACDHist < 0 {
		bear++
	}

	if s.Momentum10 > 0 {
		bull++
	} else if s.Momentum10 < 0 {
		bear++
	}

	// DI dominance only counts when a trend actually exists.
	if s.ADX > 25 {
		if s.PlusDI > s.MinusDI {
			bull++
		} else if s.MinusDI > s.PlusDI {
			bear++
		}
	}

	// %B extremes vote for mean reversion.
	if s.PercentB < 0.2 {
		bull++
	} else if s.PercentB > 0.8 {
		bear++
	}

	total := bull + bear
	c := Confluence{Direction: "NEUTRAL", Confluence: abs(bull - bear)}
	if total == 0 {
		return c
	}
	if bull > bear {
		c.Direction = "LONG"
		c.Score = float64(bull) / float64(total) * 100
	} else if bear > bull {
		c.Direction = "SHORT"
		c.Score = float64(bear) / float64(total) * 100
	} else {
		c.Score = 50
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
