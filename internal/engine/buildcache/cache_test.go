package buildcache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/core/ports/mocks"
	"go.trai.ch/spark/internal/engine/buildcache"
	"go.uber.org/mock/gomock"
)

type cacheTestMocks struct {
	store       *mocks.MockPersistentStore
	hasher      *mocks.MockHasher
	broadcaster *mocks.MockBroadcaster
	logger      *mocks.MockLogger
}

func setupCacheTest(t *testing.T, withStore bool) (*buildcache.Cache, cacheTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := cacheTestMocks{
		store:       mocks.NewMockPersistentStore(ctrl),
		hasher:      mocks.NewMockHasher(ctrl),
		broadcaster: mocks.NewMockBroadcaster(ctrl),
		logger:      mocks.NewMockLogger(ctrl),
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()

	var opts []buildcache.Option
	if withStore {
		opts = append(opts, buildcache.WithPersistentStore(m.store))
	}
	return buildcache.New(m.hasher, m.broadcaster, m.logger, tracer, opts...), m
}

func entry(code, hash string) *domain.CacheEntry {
	return &domain.CacheEntry{
		Output:     domain.BuildOutput{".js": {Code: code}},
		SourceHash: hash,
	}
}

func TestCache_PutThenGet(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	e := entry("export {}", "h1")

	m.store.EXPECT().Put(gomock.Any(), key.String(), *e).Return(nil).Times(1)

	c.Put(context.Background(), key, e)
	c.Put(context.Background(), key, e)
	c.Wait()

	got, hit, err := c.Get(context.Background(), key, nil)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, e, got)
}

func TestCache_KeyIsolation(t *testing.T) {
	c, _ := setupCacheTest(t, false)
	client := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	ssr := domain.NewCacheKey("/src/a.js", domain.ModeSSR, "dev")
	clientEntry := entry("client", "h")
	ssrEntry := entry("ssr", "h")

	c.Put(context.Background(), client, clientEntry)
	c.Put(context.Background(), ssr, ssrEntry)

	got, hit, err := c.Get(context.Background(), client, nil)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Same(t, clientEntry, got)

	got, hit, err = c.Get(context.Background(), ssr, nil)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Same(t, ssrEntry, got)
}

func TestCache_InvalidateFileAcrossModes(t *testing.T) {
	c, _ := setupCacheTest(t, false)
	c.Put(context.Background(), domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev"), entry("a", "h"))
	c.Put(context.Background(), domain.NewCacheKey("/src/a.js", domain.ModeSSR, "dev"), entry("a", "h"))
	c.Put(context.Background(), domain.NewCacheKey("/src/b.js", domain.ModeClient, "dev"), entry("b", "h"))

	assert.Equal(t, 2, c.InvalidateFile("/src/a.js"))
	assert.Equal(t, 1, c.Len())

	_, hit, err := c.Get(context.Background(), domain.NewCacheKey("/src/a.js", domain.ModeSSR, "dev"), nil)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_TrustButVerify_Consistent(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	stored := entry("export const a = 1", "h1")

	m.store.EXPECT().Get(gomock.Any(), key.String()).Return(stored, nil)
	m.hasher.EXPECT().ComputeFileHash("/src/a.js").Return("h1", nil)
	m.store.EXPECT().Clear(gomock.Any()).Times(0)
	m.broadcaster.EXPECT().Broadcast(gomock.Any()).Times(0)

	var rebuilds atomic.Int32
	got, hit, err := c.Get(context.Background(), key, func(context.Context) (*domain.CacheEntry, error) {
		rebuilds.Add(1)
		return entry("export const a = 1", "h1"), nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, stored, got)

	c.Wait()
	assert.Equal(t, int32(1), rebuilds.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCache_TrustButVerify_Divergent(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	stored := entry("export const a = 1", "h1")

	m.store.EXPECT().Get(gomock.Any(), key.String()).Return(stored, nil)
	m.store.EXPECT().Clear(gomock.Any()).Return(nil).Times(1)
	m.hasher.EXPECT().ComputeFileHash("/src/a.js").Return("h1", nil)
	m.logger.EXPECT().Warn(gomock.Any()).Times(1)
	m.broadcaster.EXPECT().Broadcast(domain.NewReloadMessage()).Do(func(domain.Message) {
		assert.Equal(t, 0, c.Len(), "memory must be empty before reload")
	}).Times(1)

	got, hit, err := c.Get(context.Background(), key, func(context.Context) (*domain.CacheEntry, error) {
		return entry("export const a = 2", "h1"), nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, stored, got, "the stale entry is still served once")

	c.Wait()
	assert.Equal(t, 0, c.Len())
}

func TestCache_PersistentHashMismatchIsMiss(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")

	m.store.EXPECT().Get(gomock.Any(), key.String()).Return(entry("old", "h1"), nil)
	m.hasher.EXPECT().ComputeFileHash("/src/a.js").Return("h2", nil)

	got, hit, err := c.Get(context.Background(), key, func(context.Context) (*domain.CacheEntry, error) {
		t.Fatal("stale entries must not be verified")
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Len())
}

func TestCache_PersistentReadErrorIsMiss(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")

	m.store.EXPECT().Get(gomock.Any(), key.String()).Return(nil, errors.New("disk on fire"))
	m.logger.EXPECT().Warn(gomock.Any()).Times(1)

	_, hit, err := c.Get(context.Background(), key, nil)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_PersistentWriteFailureIsSwallowed(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")

	m.store.EXPECT().Put(gomock.Any(), key.String(), gomock.Any()).Return(errors.New("read-only fs"))
	m.logger.EXPECT().Warn(gomock.Any()).Times(1)

	c.Put(context.Background(), key, entry("x", "h"))
	c.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestCache_ClearEmptiesBothTiers(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.store.EXPECT().Clear(gomock.Any()).Return(nil)

	c.Put(context.Background(), key, entry("x", "h"))
	c.Wait()
	require.NoError(t, c.Clear(context.Background()))
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutAfterInvalidationIsDropped(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	other := domain.NewCacheKey("/src/b.js", domain.ModeClient, "dev")
	m.store.EXPECT().Put(gomock.Any(), other.String(), gomock.Any()).Return(nil).Times(1)

	gen := c.Generation(key.Path)
	otherGen := c.Generation(other.Path)
	c.InvalidateFile(key.Path)

	assert.False(t, c.PutIfCurrent(context.Background(), key, entry("old", "h"), gen))
	assert.True(t, c.PutIfCurrent(context.Background(), other, entry("b", "h"), otherGen))
	c.Wait()
	assert.Equal(t, 1, c.Len())

	// A build started after the invalidation is cached.
	fresh := entry("new", "h")
	m.store.EXPECT().Put(gomock.Any(), key.String(), *fresh).Return(nil).Times(1)
	assert.True(t, c.PutIfCurrent(context.Background(), key, fresh, c.Generation(key.Path)))
	c.Wait()
	assert.Equal(t, 2, c.Len())
}

func TestCache_PutAfterClearIsDropped(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	m.store.EXPECT().Clear(gomock.Any()).Return(nil)

	gen := c.Generation(key.Path)
	require.NoError(t, c.Clear(context.Background()))

	assert.False(t, c.PutIfCurrent(context.Background(), key, entry("old", "h"), gen))
	c.Wait()
	assert.Equal(t, 0, c.Len())
}

func TestCache_PersistentHitNotPromotedAfterInvalidation(t *testing.T) {
	c, m := setupCacheTest(t, true)
	key := domain.NewCacheKey("/src/a.js", domain.ModeClient, "dev")
	stored := entry("v1", "h1")

	m.store.EXPECT().Get(gomock.Any(), key.String()).DoAndReturn(
		func(context.Context, string) (*domain.CacheEntry, error) {
			// The file changes while the entry is being read.
			c.InvalidateFile(key.Path)
			return stored, nil
		},
	)
	m.hasher.EXPECT().ComputeFileHash(key.Path).Return("h1", nil)

	var rebuilds atomic.Int32
	got, hit, err := c.Get(context.Background(), key, func(context.Context) (*domain.CacheEntry, error) {
		rebuilds.Add(1)
		return stored, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, stored, got)

	c.Wait()
	assert.Equal(t, 0, c.Len())
	assert.Zero(t, rebuilds.Load())
}
