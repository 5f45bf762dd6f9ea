// Package sqlitestore implements the persistent build cache on a single
// SQLite database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
	"lukechampine.com/blake3"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	source_hash TEXT NOT NULL,
	digest TEXT NOT NULL,
	payload BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

var _ ports.PersistentStore = (*Store)(nil)

// Store keeps cache entries as JSON payloads with a BLAKE3 digest.
// A row whose payload no longer matches its digest is treated as missing.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", path)
	}
	// One writer at a time avoids SQLITE_BUSY from the background writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", path)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, or nil if missing or corrupt.
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var sourceHash, digest string
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT source_hash, digest, payload FROM cache_entries WHERE key = ?", key,
	).Scan(&sourceHash, &digest, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}

	if checksum(payload) != digest {
		return nil, nil
	}

	var output domain.BuildOutput
	if err := json.Unmarshal(payload, &output); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "key", key)
	}
	return &domain.CacheEntry{Output: output, SourceHash: sourceHash}, nil
}

// Put inserts or replaces the entry for key.
func (s *Store) Put(ctx context.Context, key string, entry domain.CacheEntry) error {
	payload, err := json.Marshal(entry.Output)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, source_hash, digest, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, entry.SourceHash, checksum(payload), payload, time.Now().UnixNano(),
	)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "key", key)
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error())
	}
	return nil
}

func checksum(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
