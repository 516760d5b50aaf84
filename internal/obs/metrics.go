// Package obs exposes engine metrics and health over HTTP.
package obs

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the decision engine.
type Metrics struct {
	CyclesTotal  prometheus.Counter
	StepFailures *prometheus.CounterVec // labels: step
	CycleDur     prometheus.Histogram

	BreakerState prometheus.Gauge // 0=closed, 1=open
	BreakerTrips prometheus.Counter

	TradesOpened  prometheus.Counter
	TradesClosed  *prometheus.CounterVec // labels: result=win|loss
	TradesFlipped prometheus.Counter

	AccountBalance prometheus.Gauge
}

// NewMetrics registers and returns all engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_cycles_total",
			Help: "Total decision cycles run",
		}),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_step_failures_total",
			Help: "Cycle step failures (by step)",
		}, []string{"step"}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_cycle_duration_seconds",
			Help:    "Wall-clock duration of a full decision cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_data_breaker_state",
			Help: "Market data circuit breaker state (0=closed, 1=open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_data_breaker_trips_total",
			Help: "Times the market data circuit breaker tripped open",
		}),

		TradesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_trades_opened_total",
			Help: "Trades promoted to active",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_closed_total",
			Help: "Trades closed (by result)",
		}, []string{"result"}),
		TradesFlipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_trades_flipped_total",
			Help: "Stop-outs reversed into the opposite direction",
		}),

		AccountBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_account_balance",
			Help: "Paper account balance as of the last cycle",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.StepFailures,
		m.CycleDur,
		m.BreakerState,
		m.BreakerTrips,
		m.TradesOpened,
		m.TradesClosed,
		m.TradesFlipped,
		m.AccountBalance,
	)

	return m
}

// HealthStatus tracks the engine's last-cycle outcome for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	LastCycleAt  time.Time `json:"last_cycle_at"`
	LastCycleOK  bool      `json:"last_cycle_ok"`
	BreakerOpen  bool      `json:"breaker_open"`
	ActiveTrades int       `json:"active_trades"`
	StartedAt    time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetCycleResult(ok bool, breakerOpen bool, activeTrades int) {
	h.mu.Lock()
	h.LastCycleAt = time.Now()
	h.LastCycleOK = ok
	h.BreakerOpen = breakerOpen
	h.ActiveTrades = activeTrades
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.LastCycleOK || h.BreakerOpen {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = h.LastCycleAt.Format(time.RFC3339)
	}

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		LastCycleAt  string `json:"last_cycle_at"`
		LastCycleOK  bool   `json:"last_cycle_ok"`
		BreakerOpen  bool   `json:"breaker_open"`
		ActiveTrades int    `json:"active_trades"`
	}{
		Status:       overallStatus,
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		LastCycleAt:  lastCycle,
		LastCycleOK:  h.LastCycleOK,
		BreakerOpen:  h.BreakerOpen,
		ActiveTrades: h.ActiveTrades,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[obs] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[obs] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
