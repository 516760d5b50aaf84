// Package notification delivers engine advisories to external channels
// (Telegram, webhooks). The engine treats delivery as best-effort: an
// advisory that fails to send is logged and never fails a cycle.
package notification

import (
	"context"
	"fmt"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// HedgeAlert is the portfolio hedge advisory.
func HedgeAlert(message string) Alert {
	return Alert{Level: AlertWarning, Title: "Hedge advisory", Message: message}
}

// BreakerAlert signals the market data circuit breaker tripping open.
func BreakerAlert(failures int) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Market data breaker open",
		Message: fmt.Sprintf("%d fetch failures inside the window; entries paused until cooldown", failures),
	}
}

// DrawdownAlert signals the monthly drawdown breaker forcing the safe profile.
func DrawdownAlert(drawdownPct float64) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Drawdown breaker tripped",
		Message: fmt.Sprintf("monthly drawdown %.1f%% exceeded the limit; profile forced to safe for 48h", drawdownPct),
	}
}

// FlipAlert signals a stop-out reversed into the opposite direction.
func FlipAlert(symbol, from, to string) Alert {
	return Alert{
		Level:   AlertInfo,
		Title:   "Position flipped",
		Message: fmt.Sprintf("%s stopped out %s and re-entered %s on opposing trend", symbol, from, to),
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to several backends, returning the first error
// after attempting all of them.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
