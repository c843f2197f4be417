// Package history keeps a local record of workflow passes and which slots
// have already been announced, so a slot that lingers across passes is not
// re-notified every few minutes. A nil *Store disables everything cleanly.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS passes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS notified_slots (
	slot_id TEXT PRIMARY KEY,
	notified_at TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// RecordPass appends one pass outcome (booked, notified, no-slot, error...).
func (s *Store) RecordPass(ctx context.Context, outcome, detail string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passes(started_at, outcome, detail) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), outcome, detail)
	return err
}

// SeenSlot reports whether a slot was already announced. Without a store no
// slot is ever considered seen, restoring the notify-every-pass behavior.
func (s *Store) SeenSlot(ctx context.Context, slotID string) (bool, error) {
	if s == nil || slotID == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notified_slots WHERE slot_id = ?`, slotID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkNotified records a slot announcement.
func (s *Store) MarkNotified(ctx context.Context, slotID string) error {
	if s == nil || slotID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notified_slots(slot_id, notified_at) VALUES (?, ?)`,
		slotID, time.Now().UTC().Format(time.RFC3339))
	return err
}
