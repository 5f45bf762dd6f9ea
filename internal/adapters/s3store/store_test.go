package s3store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/s3store"
	"go.trai.ch/spark/internal/core/domain"
)

type object struct {
	body     []byte
	metadata map[string]string
}

// fakeClient is an in-memory bucket. It pages listings two keys at a time.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string]object
	getErr  error
	deletes int
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]object)}
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = object{body: body, metadata: maps.Clone(in.Metadata)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(obj.body)),
		Metadata: obj.metadata,
	}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for i, k := range keys {
		if i == 2 {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(keys[i-1])
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeClient) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func testEntry(code string) domain.CacheEntry {
	return domain.CacheEntry{
		Output:     domain.BuildOutput{".js": {Code: code, Map: "{}"}},
		SourceHash: "abc123",
	}
}

func TestStore_PutThenGet(t *testing.T) {
	client := newFakeClient()
	store := s3store.New(client, "bucket", "spark/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/src/a.js?mode=client&env=", testEntry("export {}")))

	got, err := store.Get(ctx, "/src/a.js?mode=client&env=")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc123", got.SourceHash)
	assert.Equal(t, "export {}", got.Output[".js"].Code)
	assert.Equal(t, "{}", got.Output[".js"].Map)
}

func TestStore_MissingKeyIsMiss(t *testing.T) {
	store := s3store.New(newFakeClient(), "bucket", "spark/")

	got, err := store.Get(context.Background(), "/src/missing.js")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ReadErrorIsReturned(t *testing.T) {
	client := newFakeClient()
	client.getErr = errors.New("access denied")
	store := s3store.New(client, "bucket", "spark/")

	_, err := store.Get(context.Background(), "/src/a.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrStoreReadFailed.Error())
}

func TestStore_ObjectsStayUnderPrefix(t *testing.T) {
	client := newFakeClient()
	store := s3store.New(client, "bucket", "team/spark/")

	require.NoError(t, store.Put(context.Background(), "/src/a.js", testEntry("a")))

	for k := range client.objects {
		assert.True(t, strings.HasPrefix(k, "team/spark/"), k)
	}
}

func TestStore_Delete(t *testing.T) {
	client := newFakeClient()
	store := s3store.New(client, "bucket", "spark/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/src/a.js", testEntry("a")))
	require.NoError(t, store.Delete(ctx, "/src/a.js"))

	got, err := store.Get(ctx, "/src/a.js")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ClearPagesThroughPrefix(t *testing.T) {
	client := newFakeClient()
	store := s3store.New(client, "bucket", "spark/")
	ctx := context.Background()

	for _, p := range []string{"/a.js", "/b.js", "/c.js", "/d.js", "/e.js"} {
		require.NoError(t, store.Put(ctx, p, testEntry(p)))
	}
	client.objects["other/keep"] = object{body: []byte("x")}

	require.NoError(t, store.Clear(ctx))

	assert.Equal(t, 1, client.len())
	assert.Contains(t, client.objects, "other/keep")
	assert.Equal(t, 1, client.deletes)
}
