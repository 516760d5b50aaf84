package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DrawdownBreaker records an active monthly drawdown lockout.
type DrawdownBreaker struct {
	TriggeredAt    time.Time `json:"triggered_at"`
	RestoreProfile string    `json:"restore_profile"`
}

// EngineState is the persisted cross-cycle snapshot. It is loaded once at
// cycle start and saved at cycle end, plus immediately after mutations that
// must survive a crash (drawdown trigger).
type EngineState struct {
	LastADX            float64              `json:"last_adx"`
	LastMoves          map[string]time.Time `json:"last_moves"` // per-symbol cooldown ledger
	ConsecutiveLosses  int                  `json:"consecutive_losses"`
	LossCooldownTrades int                  `json:"loss_cooldown_trades"` // remaining reduced-size trades
	Drawdown           *DrawdownBreaker     `json:"drawdown,omitempty"`
	MonthStartBalance  float64              `json:"month_start_balance"`
	Month              string               `json:"month"` // "2006-01" marker
}

// NewState returns an empty engine state.
func NewState() *EngineState {
	return &EngineState{LastMoves: make(map[string]time.Time)}
}

// LoadState reads the snapshot file. A missing file is a cold start, not an
// error. A corrupt file returns a fresh state alongside the parse error so
// the caller can log it and continue.
func LoadState(path string) (*EngineState, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return NewState(), fmt.Errorf("state: read %s: %w", path, err)
	}
	s := NewState()
	if err := json.Unmarshal(raw, s); err != nil {
		return NewState(), fmt.Errorf("state: parse %s: %w", path, err)
	}
	if s.LastMoves == nil {
		s.LastMoves = make(map[string]time.Time)
	}
	return s, nil
}

// Save writes the snapshot atomically (temp file + rename).
func (s *EngineState) Save(path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state: mkdir %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}

// MarkMove stamps the cooldown ledger for a symbol.
func (s *EngineState) MarkMove(symbol string, at time.Time) {
	s.LastMoves[symbol] = at
}

// lossStreakTrigger and lossCooldownLength define the loss-streak cooldown:
// 5 consecutive losing exits halve position sizes for the next 10 trades.
const (
	lossStreakTrigger  = 5
	lossCooldownLength = 10
)

// RecordExit updates the loss-streak counters after a closed trade.
func (s *EngineState) RecordExit(win bool) {
	if win {
		s.ConsecutiveLosses = 0
		return
	}
	s.ConsecutiveLosses++
	if s.ConsecutiveLosses >= lossStreakTrigger {
		s.LossCooldownTrades = lossCooldownLength
		s.ConsecutiveLosses = 0
	}
}

// LossCooldownActive reports whether sizes are currently halved.
func (s *EngineState) LossCooldownActive() bool {
	return s.LossCooldownTrades > 0
}

// ConsumeTradeSlot burns one trade off the loss cooldown. Called once per
// opened trade.
func (s *EngineState) ConsumeTradeSlot() {
	if s.LossCooldownTrades > 0 {
		s.LossCooldownTrades--
	}
}
