package engine

import (
	"context"

	"tradepilot/internal/model"
	"tradepilot/internal/recordstore"
	"tradepilot/internal/risk"
)

// breakerStore feeds record store call failures into the shared collaborator
// breaker, so a store outage trips it the same way a market-data outage
// does. Calls are never gated here: the cycle already aborts or degrades on
// store errors, the breaker just has to see them.
type breakerStore struct {
	inner   recordstore.Store
	breaker *risk.Breaker
}

func (s breakerStore) observe(err error) error {
	if err != nil {
		s.breaker.RecordFailure()
	}
	return err
}

func (s breakerStore) ListTrades(ctx context.Context, board string) ([]model.TradeRecord, error) {
	trades, err := s.inner.ListTrades(ctx, board)
	return trades, s.observe(err)
}

func (s breakerStore) CreateTrade(ctx context.Context, trade model.TradeRecord) (model.TradeRecord, error) {
	created, err := s.inner.CreateTrade(ctx, trade)
	return created, s.observe(err)
}

func (s breakerStore) PatchTrade(ctx context.Context, id string, patch recordstore.TradePatch) error {
	return s.observe(s.inner.PatchTrade(ctx, id, patch))
}

func (s breakerStore) ExitTrade(ctx context.Context, id string) error {
	return s.observe(s.inner.ExitTrade(ctx, id))
}

func (s breakerStore) GetAccount(ctx context.Context, board string) (recordstore.Account, error) {
	acct, err := s.inner.GetAccount(ctx, board)
	return acct, s.observe(err)
}

func (s breakerStore) DeductBalance(ctx context.Context, board string, amount float64) error {
	return s.observe(s.inner.DeductBalance(ctx, board, amount))
}

func (s breakerStore) AppendJournal(ctx context.Context, tradeID string, kind recordstore.JournalType, text string) error {
	return s.observe(s.inner.AppendJournal(ctx, tradeID, kind, text))
}
