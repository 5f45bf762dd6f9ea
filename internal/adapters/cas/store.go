// Package cas implements the file-per-key persistent build cache.
package cas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

const recordExt = ".json.zst"

var _ ports.PersistentStore = (*Store)(nil)

// record is the on-disk form of one entry. Key is stored so a file can be
// matched to its key without trusting the file name.
type record struct {
	Key   string            `json:"key"`
	Entry domain.CacheEntry `json:"entry"`
}

// Store keeps one zstd-compressed JSON record per cache key in a directory.
type Store struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore creates a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) (*Store, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	return &Store{dir: dir, encoder: encoder, decoder: decoder}, nil
}

// Get returns the entry stored under key, or nil if there is none.
func (s *Store) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(s.filename(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}

	raw, err := s.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "key", key)
	}
	if rec.Key != key {
		return nil, nil
	}
	return &rec.Entry, nil
}

// Put writes entry under key, replacing the previous record atomically.
func (s *Store) Put(_ context.Context, key string, entry domain.CacheEntry) error {
	raw, err := json.Marshal(record{Key: key, Entry: entry})
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(s.encoder.EncodeAll(raw, nil)); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmp.Name(), s.filename(key)); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}

// Delete removes the record for key. A missing record is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "key", key)
	}
	return nil
}

// Clear removes the whole cache directory.
func (s *Store) Clear(_ context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "dir", s.dir)
	}
	return nil
}

func (s *Store) filename(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+recordExt)
}
