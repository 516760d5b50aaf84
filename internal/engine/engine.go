// Package engine orchestrates the decision cycle: snapshot the market,
// walk active trades through the exit ladder, evaluate entries for
// analyzing symbols, promote watchlist candidates, then persist state.
// Steps are failure-isolated: one collaborator error degrades the cycle,
// it never aborts it.
package engine

import (
	"context"
	"time"

	"tradepilot/config"
	"tradepilot/internal/journal"
	"tradepilot/internal/logger"
	"tradepilot/internal/marketdata"
	"tradepilot/internal/model"
	"tradepilot/internal/notification"
	"tradepilot/internal/obs"
	"tradepilot/internal/recordstore"
	"tradepilot/internal/risk"
)

// timeframe and series depth for every snapshot.
const (
	timeframe   = "4h"
	candleLimit = 200
)

// Engine wires the collaborators together and runs decision cycles.
type Engine struct {
	cfg      *config.Config
	store    recordstore.Store
	market   marketdata.Provider
	cache    *marketdata.Cache
	breaker  *risk.Breaker
	journal  *journal.Journal
	notifier notification.Notifier
	metrics  *obs.Metrics
	profiles map[string]model.RiskProfile

	now func() time.Time // injectable for tests
}

// Options carries the optional collaborators. Nil fields disable the
// corresponding concern rather than failing construction.
type Options struct {
	Cache    *marketdata.Cache
	Journal  *journal.Journal
	Notifier notification.Notifier
	Metrics  *obs.Metrics
}

// New builds an engine. store and market are required; everything in opts
// degrades gracefully when nil.
func New(cfg *config.Config, store recordstore.Store, market marketdata.Provider, profiles map[string]model.RiskProfile, opts Options) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    store,
		market:   market,
		cache:    opts.Cache,
		breaker:  risk.DefaultBreaker(),
		journal:  opts.Journal,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		profiles: profiles,
		now:      time.Now,
	}
	if e.cache == nil {
		e.cache = marketdata.NewCache(nil, 0)
	}
	if e.notifier == nil {
		e.notifier = notification.NewLogNotifier()
	}
	e.breaker.OnTrip = e.onBreakerTrip
	// Both collaborators feed the breaker: store failures count the same as
	// market-data fetch failures.
	e.store = breakerStore{inner: store, breaker: e.breaker}
	return e
}

func (e *Engine) onBreakerTrip() {
	if e.metrics != nil {
		e.metrics.BreakerTrips.Inc()
	}
	e.notify(context.Background(), notification.BreakerAlert(e.breaker.FailureCount()))
}

func (e *Engine) recordStepFailure(step string) {
	if e.metrics != nil {
		e.metrics.StepFailures.WithLabelValues(step).Inc()
	}
}

func cycleID(ctx context.Context) string {
	return logger.CycleID(ctx)
}

// BreakerOpen reports whether the market data breaker is rejecting calls.
func (e *Engine) BreakerOpen() bool {
	return e.breaker.Open()
}

// journalDecision writes to the local audit journal, best-effort.
func (e *Engine) journalDecision(d journal.Decision) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordDecision(d); err != nil {
		e.recordStepFailure("journal")
	}
}
