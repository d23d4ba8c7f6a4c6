package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History is an append-only audit log of dispatched commands, one row per
// request, queryable for diagnostics. It sits beside the per-engine gob
// snapshots — it is not itself a "model" and has no restore contract.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the command audit log under dir.
func OpenHistory(dir string) (*History, error) {
	path := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer; matches the dispatcher's single-threaded loop

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &History{db: db}, nil
}

const historySchema = `
CREATE TABLE IF NOT EXISTS command_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          INTEGER NOT NULL,
	command     TEXT NOT NULL,
	engine      TEXT NOT NULL,
	ok          INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// Record appends one row for a dispatched command. A logging failure here
// is swallowed by the caller (the dispatcher never fails a request because
// its audit trail couldn't be written).
func (h *History) Record(command, engine string, ok bool, duration time.Duration) error {
	okVal := 0
	if ok {
		okVal = 1
	}
	_, err := h.db.Exec(
		`INSERT INTO command_log (ts, command, engine, ok, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), command, engine, okVal, duration.Milliseconds(),
	)
	return err
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}
