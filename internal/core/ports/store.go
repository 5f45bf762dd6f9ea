package ports

import (
	"context"

	"go.trai.ch/spark/internal/core/domain"
)

// PersistentStore is the persistent tier of the build cache.
// The whole store may be deleted at any time.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type PersistentStore interface {
	// Get retrieves the entry stored under key.
	// Returns nil, nil if not found.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	// Put stores entry under key.
	Put(ctx context.Context, key string, entry domain.CacheEntry) error
	// Delete removes the entry stored under key.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
