// Package marketdata fetches candle series and funding rates from the
// external market data provider. Failures here are transient by taxonomy:
// they feed the engine's circuit breaker, and a redis-backed cache lets a
// breaker-degraded cycle continue on the last good series.
package marketdata

import (
	"context"

	"tradepilot/internal/model"
)

// Provider is the external market data collaborator.
type Provider interface {
	// GetCandles returns up to limit finalized bars for the symbol at the
	// given timeframe (e.g. "4h"), oldest first.
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) (model.Series, error)

	// GetFundingRate returns the current funding rate, or nil when the
	// provider has none for this symbol. An error is a transient failure.
	GetFundingRate(ctx context.Context, symbol string) (*float64, error)
}
