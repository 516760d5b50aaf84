// Package recordstore is the client for the external trade record API: the
// board of trade records, the account balance, and the journal. The engine
// performs only additive or idempotent-intent mutations here — create-if-
// missing for pinned symbols, field-level patches for state and metadata.
package recordstore

import (
	"context"

	"tradepilot/internal/model"
)

// Account is the board's balance snapshot.
type Account struct {
	Board   string  `json:"board"`
	Balance float64 `json:"balance"`
}

// JournalType classifies journal entries appended to a trade.
type JournalType string

const (
	JournalEntry    JournalType = "entry"
	JournalExit     JournalType = "exit"
	JournalPartial  JournalType = "partial_exit"
	JournalTrailing JournalType = "trailing_update"
	JournalNote     JournalType = "note"
)

// TradePatch is a field-level patch. Nil pointers are omitted from the
// request body, so untouched fields keep their stored values — the engine
// never replaces a record wholesale.
type TradePatch struct {
	Status       *model.Status    `json:"status,omitempty"`
	Direction    *model.Direction `json:"direction,omitempty"`
	EntryPrice   *float64         `json:"entry_price,omitempty"`
	ExitPrice    *float64         `json:"exit_price,omitempty"`
	PositionSize *float64         `json:"position_size,omitempty"`
	StopLoss     *float64         `json:"stop_loss,omitempty"`
	TakeProfit   *float64         `json:"take_profit,omitempty"`
	Meta         *model.TradeMeta `json:"meta,omitempty"`
}

// Store is the external trade record collaborator.
type Store interface {
	ListTrades(ctx context.Context, board string) ([]model.TradeRecord, error)
	CreateTrade(ctx context.Context, trade model.TradeRecord) (model.TradeRecord, error)
	PatchTrade(ctx context.Context, id string, patch TradePatch) error
	// ExitTrade finalizes a closed record on the store side (archival,
	// leaderboards). The status patch must already have happened.
	ExitTrade(ctx context.Context, id string) error
	GetAccount(ctx context.Context, board string) (Account, error)
	// DeductBalance reduces the balance; a negative amount credits it.
	DeductBalance(ctx context.Context, board string, amount float64) error
	AppendJournal(ctx context.Context, tradeID string, kind JournalType, text string) error
}

// Helper constructors for patch pointer fields.

func StatusPtr(s model.Status) *model.Status          { return &s }
func DirectionPtr(d model.Direction) *model.Direction { return &d }
func Float(f float64) *float64                        { return &f }
