package logger

import (
	"context"
	"testing"
	"time"
)

func TestCycleIDRoundTrip(t *testing.T) {
	ts := time.Unix(0, 1718000000000000000)
	ctx := NewCycle(context.Background(), "board-1", ts)

	want := "board-1-1718000000000000000"
	if got := CycleID(ctx); got != want {
		t.Errorf("CycleID = %q, want %q", got, want)
	}
	if attrs := CycleAttrs(ctx); len(attrs) != 1 {
		t.Errorf("CycleAttrs returned %d attrs, want 1", len(attrs))
	}
}

func TestCycleIDAbsent(t *testing.T) {
	ctx := context.Background()
	if got := CycleID(ctx); got != "" {
		t.Errorf("CycleID on bare context = %q, want empty", got)
	}
	if attrs := CycleAttrs(ctx); attrs != nil {
		t.Errorf("CycleAttrs on bare context = %v, want nil", attrs)
	}
}
