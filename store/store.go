// Package store caches compiled flat-form programs in SQLite, keyed by the
// fingerprint of their command text.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/tape/compiler/hash"
	"github.com/chazu/tape/pkg/bytecode"
)

var log = commonlog.GetLogger("tape.store")

// ErrNotFound indicates the requested program is not cached.
var ErrNotFound = errors.New("store: program not found")

// Store is a content-addressed cache of compiled chunks. It is safe for
// concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Stats summarizes the cache contents.
type Stats struct {
	Programs int   // cached programs
	Hits     int64 // total successful lookups
	Bytes    int64 // total encoded chunk size
}

// Open opens or creates the cache database at dbPath. Parent directories
// are created as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash    TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		chunk   BLOB NOT NULL,
		created INTEGER NOT NULL,
		hits    INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	log.Debugf("opened program cache %s", dbPath)
	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the cached chunk for fp. Entries written by an older
// bytecode version, or that fail verification, are evicted and reported
// as ErrNotFound.
func (s *Store) Get(fp hash.Fingerprint) (*bytecode.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fp.String()
	var (
		version int
		data    []byte
	)
	err := s.db.QueryRow("SELECT version, chunk FROM programs WHERE hash = ?", key).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: querying %s: %w", fp.Short(), err)
	}

	chunk, err := bytecode.UnmarshalChunk(data)
	if version != int(bytecode.BytecodeVersion) || err != nil {
		log.Warningf("evicting stale cache entry %s (version %d): %v", fp.Short(), version, err)
		if _, derr := s.db.Exec("DELETE FROM programs WHERE hash = ?", key); derr != nil {
			return nil, fmt.Errorf("store: evicting %s: %w", fp.Short(), derr)
		}
		return nil, ErrNotFound
	}

	if _, err := s.db.Exec("UPDATE programs SET hits = hits + 1 WHERE hash = ?", key); err != nil {
		return nil, fmt.Errorf("store: recording hit for %s: %w", fp.Short(), err)
	}
	log.Debugf("cache hit %s (%d instructions)", fp.Short(), chunk.Len())
	return chunk, nil
}

// Put stores chunk under fp, replacing any existing entry.
func (s *Store) Put(fp hash.Fingerprint, chunk *bytecode.Chunk) error {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", fp.Short(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, version, chunk, created, hits) VALUES (?, ?, ?, ?, 0)",
		fp.String(), int(chunk.Version), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: saving %s: %w", fp.Short(), err)
	}
	log.Debugf("cached %s (%d bytes)", fp.Short(), len(data))
	return nil
}

// Delete removes the entry for fp. Deleting a missing entry is not an error.
func (s *Store) Delete(fp hash.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs WHERE hash = ?", fp.String()); err != nil {
		return fmt.Errorf("store: deleting %s: %w", fp.Short(), err)
	}
	return nil
}

// Stats reports the number of cached programs, total hits and stored size.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(LENGTH(chunk)), 0) FROM programs",
	).Scan(&st.Programs, &st.Hits, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("store: reading stats: %w", err)
	}
	return st, nil
}
