package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradepilot/internal/model"
	"tradepilot/internal/risk"
	"tradepilot/internal/signal"
)

// Report is the read-only market review: no state changes, no patches, just
// what the engine would be looking at if a cycle ran now.
type Report struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Board        string    `json:"board"`
	Profile      string    `json:"profile"`
	Regime       string    `json:"regime"`
	RefADX       float64   `json:"ref_adx"`
	NewsRiskMult float64   `json:"news_risk_mult"`

	Balance      float64 `json:"balance"`
	BalanceKnown bool    `json:"balance_known"`

	Exposure    map[string]int `json:"exposure"` // correlation group → active count
	HedgeAdvice string         `json:"hedge_advice,omitempty"`

	Trades    []TradeReview `json:"trades"`
	Watchlist []WatchReview `json:"watchlist"`

	SuggestedInterval string   `json:"suggested_interval"`
	StaleSymbols      []string `json:"stale_symbols,omitempty"`
	BreakerOpen       bool     `json:"breaker_open"`
}

// TradeReview is the per-trade slice of the report.
type TradeReview struct {
	Symbol        string          `json:"symbol"`
	Direction     model.Direction `json:"direction,omitempty"`
	Status        model.Status    `json:"status"`
	EntryPrice    float64         `json:"entry_price,omitempty"`
	Price         float64         `json:"price,omitempty"`
	PnLPct        float64         `json:"pnl_pct"`
	Confluence    float64         `json:"confluence"`
	ConfluenceDir string          `json:"confluence_dir,omitempty"`
	TrailingStage int             `json:"trailing_stage,omitempty"`
	SlippagePct   float64         `json:"slippage_pct,omitempty"`
	EntryReason   string          `json:"entry_reason,omitempty"`
	Stale         bool            `json:"stale,omitempty"`
}

// WatchReview is the per-watchlist-symbol slice of the report.
type WatchReview struct {
	Symbol       string   `json:"symbol"`
	Weight       int      `json:"weight"`
	Signals      []string `json:"signals,omitempty"`
	WouldPromote bool     `json:"would_promote"`
}

// Review builds a report without mutating any record or engine state.
func (e *Engine) Review(ctx context.Context) (*Report, error) {
	now := e.now()
	report := &Report{
		GeneratedAt:  now,
		Board:        e.cfg.BoardID,
		NewsRiskMult: e.cfg.NewsRiskMult,
		Exposure:     make(map[string]int),
		BreakerOpen:  e.breaker.Open(),
	}

	st, err := risk.LoadState(e.cfg.StatePath)
	if err != nil {
		log.Printf("[engine] review: state load degraded: %v", err)
	}
	profile := model.Profile(e.profiles, e.cfg.RiskProfile)
	if st.Drawdown != nil {
		profile = model.Profile(e.profiles, "safe")
	}
	report.Profile = profile.Name

	trades, err := e.store.ListTrades(ctx, e.cfg.BoardID)
	if err != nil {
		return nil, fmt.Errorf("engine: review: %w", err)
	}

	if acct, err := e.store.GetAccount(ctx, e.cfg.BoardID); err == nil {
		report.Balance = acct.Balance
		report.BalanceKnown = true
	}

	snaps, stale := e.collectSnapshots(ctx, trades)

	ref := snaps[referenceSymbol]
	if ref != nil {
		report.RefADX = ref.ADX
		switch {
		case ref.ADX > 25:
			report.Regime = "trending"
		case ref.ADX < 20:
			report.Regime = "ranging"
		default:
			report.Regime = "neutral"
		}
	} else {
		report.Regime = "unknown"
	}
	report.SuggestedInterval = suggestInterval(profile.Name, report.Regime)

	if msg, ok := risk.HedgeAdvice(trades, ref); ok {
		report.HedgeAdvice = msg
	}

	for _, t := range trades {
		if t.Status.Terminal() || t.Status == model.StatusParked {
			continue
		}
		snap := snaps[t.Symbol]

		if t.Status == model.StatusWatchlist {
			promo := signal.ShouldPromote(snap, profile)
			report.Watchlist = append(report.Watchlist, WatchReview{
				Symbol:       t.Symbol,
				Weight:       promo.Weight,
				Signals:      promo.Signals,
				WouldPromote: promo.Promote,
			})
			continue
		}

		tr := TradeReview{
			Symbol:     t.Symbol,
			Direction:  t.Direction,
			Status:     t.Status,
			EntryPrice: t.EntryPrice,
			Stale:      stale[t.Symbol],
		}
		if snap != nil {
			tr.Price = snap.Price
			tr.PnLPct = t.PnLPct(snap.Price)
			tr.Confluence = snap.Confluence.Score
			tr.ConfluenceDir = snap.Confluence.Direction
		}
		if t.Status == model.StatusActive {
			tr.TrailingStage = t.Meta.TrailingStage
			tr.SlippagePct = t.Meta.SlippagePct(t.EntryPrice)
			tr.EntryReason = t.Meta.EntryReason
			report.Exposure[string(model.GroupFor(t.Symbol))]++
		}
		report.Trades = append(report.Trades, tr)
	}

	for sym, isStale := range stale {
		if isStale {
			report.StaleSymbols = append(report.StaleSymbols, sym)
		}
	}
	return report, nil
}

// suggestInterval maps the profile cadence to a cycle frequency hint,
// stretched in a ranging market where signals decay slowly.
func suggestInterval(profile, regime string) string {
	base := map[string]time.Duration{
		"safe":     4 * time.Hour,
		"balanced": 2 * time.Hour,
		"bold":     time.Hour,
	}[profile]
	if base == 0 {
		base = 2 * time.Hour
	}
	if regime == "ranging" {
		base *= 2
	}
	return base.String()
}
