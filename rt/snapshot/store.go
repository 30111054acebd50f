// Package snapshot persists encoded object graphs in SQLite.
//
// A snapshot is the canonical CBOR encoding of an isolated data graph,
// keyed by a generated ID. The store is an optional collaborator of the
// kernel: nothing in the scheduling or weak-reference paths depends on it.
package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/loom/rt"
)

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Info describes a stored snapshot.
type Info struct {
	ID        string
	Label     string
	Size      int
	CreatedAt time.Time
}

// Store handles SQLite storage for graph snapshots.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates a snapshot store backed by the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save encodes the graph reachable from root and stores it under a fresh
// ID, which is returned.
func (s *Store) Save(h *rt.Heap, root rt.Value, label string) (string, error) {
	data, err := rt.EncodeGraph(h, root)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT INTO snapshots (id, label, data, created_at) VALUES (?, ?, ?, ?)",
		id, label, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot %s: %w", id, err)
	}
	return id, nil
}

// Load decodes the snapshot with the given ID into the heap and returns
// its root.
func (s *Store) Load(h *rt.Heap, id string) (rt.Value, error) {
	s.mu.Lock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE id = ?", id).Scan(&data)
	s.mu.Unlock()

	if err == sql.ErrNoRows {
		return rt.Nil, ErrSnapshotNotFound
	}
	if err != nil {
		return rt.Nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	root, err := rt.DecodeGraph(h, data)
	if err != nil {
		return rt.Nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return root, nil
}

// List returns metadata for all stored snapshots, newest first.
func (s *Store) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, label, length(data), created_at FROM snapshots ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var created string
		if err := rows.Scan(&info.ID, &info.Label, &info.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, created)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the snapshot with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
