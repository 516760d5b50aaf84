package model

import "time"

// Status is the lifecycle state of a trade record.
// Watchlist → Analyzing → Active → ClosedWin | ClosedLoss.
// Parked records sit outside active evaluation entirely.
type Status string

const (
	StatusWatchlist  Status = "watchlist"
	StatusAnalyzing  Status = "analyzing"
	StatusActive     Status = "active"
	StatusClosedWin  Status = "closed_win"
	StatusClosedLoss Status = "closed_loss"
	StatusParked     Status = "parked"
)

// Terminal reports whether the engine may still transition this status.
func (s Status) Terminal() bool {
	return s == StatusClosedWin || s == StatusClosedLoss
}

// Direction of a position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// TradeRecord is the unit the engine manages. The record is owned by the
// external record store; the engine only reads and patches it.
type TradeRecord struct {
	ID           string    `json:"id"`
	Board        string    `json:"board"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Status       Status    `json:"status"`
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"`
	PositionSize float64   `json:"position_size"` // quote currency, never negative
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	Meta         TradeMeta `json:"meta"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PnLPct returns the effective unrealized P&L percent at price,
// sign-flipped for shorts. Returns 0 when no entry price is recorded.
func (t *TradeRecord) PnLPct(price float64) float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	pnl := (price - t.EntryPrice) / t.EntryPrice * 100
	if t.Direction == Short {
		pnl = -pnl
	}
	return pnl
}

// TradeMeta is the typed strategy metadata attached to a record.
// Patches to it are field-level, never a whole-blob replace.
type TradeMeta struct {
	EntryReason   string    `json:"entry_reason,omitempty"`
	SignalPrice   float64   `json:"signal_price,omitempty"` // price when the entry signal fired
	ATRAtEntry    float64   `json:"atr_at_entry,omitempty"`
	TrailingStage int       `json:"trailing_stage,omitempty"` // 0 = not armed
	TrailingStop  float64   `json:"trailing_stop,omitempty"`
	PartialTaken  bool      `json:"partial_taken,omitempty"`
	FlippedFrom   string    `json:"flipped_from,omitempty"` // closed trade ID this flip replaced
	RequeueAfter  time.Time `json:"requeue_after,omitempty"`
}

// SlippagePct reports the execution-quality gap between the signal price and
// the recorded entry, as a percent of the signal price. 0 if unknown.
func (m *TradeMeta) SlippagePct(entry float64) float64 {
	if m.SignalPrice == 0 || entry == 0 {
		return 0
	}
	return (entry - m.SignalPrice) / m.SignalPrice * 100
}
