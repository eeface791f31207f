// Package history provides SQLite-backed persistence for the client's
// file-transfer log. The chat plane stores nothing; this is purely a
// local record of sends and receives and their outcomes.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Direction of a recorded transfer, from this client's point of view.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Transfer outcome values.
const (
	StatusOK       = "ok"       // received byte count equals announced size
	StatusMismatch = "mismatch" // transfer ended short of the announced size
	StatusError    = "error"    // local I/O or socket failure
)

// Record is one completed (or failed) transfer.
type Record struct {
	ID          string
	Direction   Direction
	Peer        string // the other side's nickname
	Filename    string
	Size        int64 // announced size in bytes
	Transferred int64 // bytes actually moved
	Status      string
	Note        string // error text for failed transfers
	CreatedAt   time.Time
}

// Store provides database access for the transfer log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transfers (
		id          TEXT    PRIMARY KEY,
		direction   TEXT    NOT NULL CHECK(direction IN ('send', 'receive')),
		peer        TEXT    NOT NULL,
		filename    TEXT    NOT NULL,
		size        INTEGER NOT NULL,
		transferred INTEGER NOT NULL,
		status      TEXT    NOT NULL,
		note        TEXT    NOT NULL DEFAULT '',
		created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON transfers(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add inserts one transfer record. A missing ID or timestamp is filled in.
func (s *Store) Add(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO transfers (id, direction, peer, filename, size, transferred, status, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Direction), rec.Peer, rec.Filename,
		rec.Size, rec.Transferred, rec.Status, rec.Note,
		rec.CreatedAt.Format(dbTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: add record: %w", err)
	}
	return nil
}

// List returns the most recent transfers, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, direction, peer, filename, size, transferred, status, note, created_at
		 FROM transfers ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []Record
	for rows.Next() {
		var rec Record
		var dir, created string
		if err := rows.Scan(&rec.ID, &dir, &rec.Peer, &rec.Filename,
			&rec.Size, &rec.Transferred, &rec.Status, &rec.Note, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		rec.Direction = Direction(dir)
		if t, err := time.Parse(dbTimeLayout, created); err == nil {
			rec.CreatedAt = t
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
