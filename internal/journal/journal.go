// Package journal persists every engine decision to SQLite for audit. The
// record store holds trade state; this journal holds the local why — which
// cycle, which strategy, what the price and size were at decision time.
package journal

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is the local decision audit log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Decision is one engine action worth auditing.
type Decision struct {
	CycleID   string    `json:"cycle_id"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"` // promote, enter, partial_exit, trail, exit, flip, skip
	Direction string    `json:"direction"`
	Strategy  string    `json:"strategy"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

// New opens (or creates) the SQLite decision journal.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id    TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		action      TEXT NOT NULL,
		direction   TEXT,
		strategy    TEXT,
		price       REAL NOT NULL,
		size        REAL DEFAULT 0,
		reason      TEXT,
		decided_at  DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_cycle ON decisions(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
	CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened decision journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordDecision persists one decision.
func (j *Journal) RecordDecision(d Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO decisions (cycle_id, symbol, action, direction, strategy, price, size, reason, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CycleID,
		d.Symbol,
		d.Action,
		d.Direction,
		d.Strategy,
		d.Price,
		d.Size,
		d.Reason,
		d.DecidedAt.Format(time.RFC3339),
	)
	return err
}

// GetDecisions returns the last N decisions, newest first.
func (j *Journal) GetDecisions(limit int) ([]Decision, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT cycle_id, symbol, action, direction, strategy, price, size, reason, decided_at
		 FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var ts string
		if err := rows.Scan(&d.CycleID, &d.Symbol, &d.Action, &d.Direction,
			&d.Strategy, &d.Price, &d.Size, &d.Reason, &ts); err != nil {
			continue
		}
		d.DecidedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, d)
	}
	return out, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
