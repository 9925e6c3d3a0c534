// Package storage implements the snapshot persistence hook spec.md §6.4
// names but leaves optional: a room's phase state treated as an opaque
// blob, saved on the composition root's periodic sweep and at shutdown, and
// loaded once at process start for whatever rooms the lobby index still
// names as active.
//
// The core never depends on this package directly — internal/room's
// composition only needs a SnapshotRepository, so a caller that doesn't
// want persistence at all can wire in a no-op implementation instead.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotRepository is the persistence hook spec.md §6.4 describes as
// `{saveSnapshot(roomId, blob), loadSnapshot(roomId)->blob|null,
// appendEvent(roomId, event)}`, generalized just enough to carry the
// sequence number a blob was captured at (so a reload can tell the
// broadcast primitive where to resume its change log).
type SnapshotRepository interface {
	// SaveSnapshot persists the full current state of roomID, replacing
	// whatever snapshot (if any) was previously stored for it.
	SaveSnapshot(roomID string, sequenceNumber int, blob []byte) error
	// LoadSnapshot returns the most recently saved snapshot for roomID, if
	// any. ok is false if no snapshot has ever been saved for this room.
	LoadSnapshot(roomID string) (blob []byte, sequenceNumber int, ok bool, err error)
	// AppendEvent records one change-log entry for roomID, independent of
	// the room's own snapshot, for operators who want an audit trail
	// surviving a snapshot overwrite.
	AppendEvent(roomID string, sequenceNumber int, blob []byte) error
	// DeleteSnapshot removes any persisted state for roomID (called once a
	// room closes, so a stale snapshot never gets loaded back for a room
	// that no longer exists).
	DeleteSnapshot(roomID string) error
	// RoomIDs lists every room with a persisted snapshot, for the
	// composition root's startup reload.
	RoomIDs() ([]string, error)
	// Close releases the underlying connection.
	Close() error
}

// NoopRepository discards every write and never has anything to load. It
// is the default when no dbPath is configured — persistence is optional,
// never required for correct gameplay.
type NoopRepository struct{}

func (NoopRepository) SaveSnapshot(string, int, []byte) error              { return nil }
func (NoopRepository) LoadSnapshot(string) ([]byte, int, bool, error)      { return nil, 0, false, nil }
func (NoopRepository) AppendEvent(string, int, []byte) error               { return nil }
func (NoopRepository) DeleteSnapshot(string) error                         { return nil }
func (NoopRepository) RoomIDs() ([]string, error)                          { return nil, nil }
func (NoopRepository) Close() error                                        { return nil }

// SQLiteRepository is the default SnapshotRepository, backed by a single
// sqlite3 file with one row per room plus an append-only event log.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if necessary) a sqlite3 database at
// dbPath and ensures its schema exists.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS room_snapshots (
			room_id         TEXT PRIMARY KEY,
			sequence_number INTEGER NOT NULL,
			blob            BLOB NOT NULL,
			updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: create room_snapshots: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS room_events (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id         TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			blob            BLOB NOT NULL,
			created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: create room_events: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveSnapshot(roomID string, sequenceNumber int, blob []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO room_snapshots (room_id, sequence_number, blob, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			sequence_number = excluded.sequence_number,
			blob            = excluded.blob,
			updated_at      = excluded.updated_at
	`, roomID, sequenceNumber, blob, time.Now())
	return err
}

func (r *SQLiteRepository) LoadSnapshot(roomID string) ([]byte, int, bool, error) {
	var blob []byte
	var seq int
	err := r.db.QueryRow(`
		SELECT blob, sequence_number FROM room_snapshots WHERE room_id = ?
	`, roomID).Scan(&blob, &seq)
	if err == sql.ErrNoRows {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("storage: load snapshot for %s: %w", roomID, err)
	}
	return blob, seq, true, nil
}

func (r *SQLiteRepository) AppendEvent(roomID string, sequenceNumber int, blob []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO room_events (room_id, sequence_number, blob) VALUES (?, ?, ?)
	`, roomID, sequenceNumber, blob)
	return err
}

func (r *SQLiteRepository) DeleteSnapshot(roomID string) error {
	_, err := r.db.Exec(`DELETE FROM room_snapshots WHERE room_id = ?`, roomID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`DELETE FROM room_events WHERE room_id = ?`, roomID)
	return err
}

func (r *SQLiteRepository) RoomIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT room_id FROM room_snapshots`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
