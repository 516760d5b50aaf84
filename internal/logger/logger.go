// Package logger owns the process-wide slog setup and the decision-cycle ID
// that correlates every structured log line one cycle emits.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type cycleKey struct{}

// Init installs a JSON handler tagged with the service name as the default
// slog logger and returns it. Plain log.Printf output is left untouched so
// the terse [component] traces keep their shape.
func Init(service string, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// NewCycle stamps ctx with a fresh cycle ID. IDs are "{board}-{unixNano}"
// of the cycle start: unique per board, sortable by start time, greppable
// without a UUID dependency.
func NewCycle(ctx context.Context, board string, started time.Time) context.Context {
	return context.WithValue(ctx, cycleKey{}, fmt.Sprintf("%s-%d", board, started.UnixNano()))
}

// CycleID returns the cycle ID carried by ctx, or "" outside a cycle.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// CycleAttrs returns the slog attributes identifying the current cycle,
// for appending to a log call's argument list:
//
//	slog.Info("msg", logger.CycleAttrs(ctx)...)
//
// Nil outside a cycle, so bare contexts add no noise.
func CycleAttrs(ctx context.Context) []any {
	id := CycleID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("cycle_id", id)}
}
