package assetload

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/internal/worker"
	"github.com/hupe1980/assetload/resource"
)

func syncRes(loc StorageLocation) Resolution {
	return Resolution{Mode: ModePersistentSync, Location: loc, Backend: BackendDiskSync}
}

func TestBlobFetcher_Sync(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(t.Context(), "a", []byte("payload")))

	rc := resource.NewController(resource.Config{})
	metrics := &BasicMetricsCollector{}
	f := startBlobFetch(t.Context(), fetchEnv{rc: rc, metrics: metrics}, store, syncRes(LocationPersistent), "a")

	require.True(t, f.IsCompleted())
	require.True(t, f.IsSuccess())
	require.NoError(t, f.Err())
	assert.Equal(t, []byte("payload"), f.Bytes())
	assert.Equal(t, int64(7), rc.MemoryUsage())
	assert.Equal(t, int64(7), metrics.GetStats().FetchBytes)

	f.Release()
	f.Release()
	assert.Nil(t, f.Bytes())
	assert.False(t, f.IsSuccess())
	assert.Zero(t, rc.MemoryUsage())
	assert.Zero(t, rc.FetchesInFlight())
}

func TestBlobFetcher_Async(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(t.Context(), "a", []byte("payload")))

	pool := worker.NewPool(1)
	defer pool.Close()

	res := Resolution{Mode: ModeStreamingFetch, Location: LocationStreaming, Backend: BackendNetwork}
	f := startBlobFetch(t.Context(), fetchEnv{pool: pool, metrics: NoopMetricsCollector{}}, store, res, "a")

	require.Eventually(t, f.IsCompleted, 5*time.Second, time.Millisecond)
	assert.True(t, f.IsSuccess())
	assert.Equal(t, []byte("payload"), f.Bytes())
}

func TestBlobFetcher_PoolClosed(t *testing.T) {
	pool := worker.NewPool(1)
	pool.Close()

	res := Resolution{Mode: ModeStreamingFetch, Location: LocationStreaming, Backend: BackendNetwork}
	f := startBlobFetch(t.Context(), fetchEnv{pool: pool, metrics: NoopMetricsCollector{}}, blobstore.NewMemoryStore(), res, "a")

	require.True(t, f.IsCompleted())
	require.ErrorIs(t, f.Err(), worker.ErrPoolClosed)
}

func TestBlobFetcher_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := startBlobFetch(t.Context(), fetchEnv{metrics: NoopMetricsCollector{}}, blobstore.NewMemoryStore(), syncRes(LocationPersistent), "missing")
		require.True(t, f.IsCompleted())
		assert.False(t, f.IsSuccess())
		require.ErrorIs(t, f.Err(), ErrNotFound)
		require.ErrorIs(t, f.Err(), blobstore.ErrNotFound)
	})

	t.Run("memory limit", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(t.Context(), "a", make([]byte, 64)))
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 32})

		f := startBlobFetch(t.Context(), fetchEnv{rc: rc, metrics: NoopMetricsCollector{}}, store, syncRes(LocationPersistent), "a")
		require.ErrorIs(t, f.Err(), ErrMemoryLimitExceeded)
		assert.Zero(t, rc.MemoryUsage())
	})
}

// MockBlobStore is a testify-backed BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	args := m.Called(ctx, name)
	if b := args.Get(0); b != nil {
		return b.(blobstore.Blob), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBlob struct {
	mock.Mock
}

func (m *MockBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	args := m.Called(ctx, p, off)
	if fill, ok := args.Get(0).([]byte); ok {
		copy(p, fill)
		return len(fill), args.Error(1)
	}
	return 0, args.Error(1)
}

func (m *MockBlob) Size() int64 {
	return m.Called().Get(0).(int64)
}

func (m *MockBlob) Close() error {
	return m.Called().Error(0)
}

func TestBlobFetcher_ReadAtPath(t *testing.T) {
	blob := new(MockBlob)
	blob.On("Size").Return(int64(5))
	blob.On("ReadAt", mock.Anything, mock.Anything, int64(0)).Return([]byte("hello"), nil)
	blob.On("Close").Return(nil)

	store := new(MockBlobStore)
	store.On("Open", mock.Anything, "a").Return(blob, nil)

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	f := startBlobFetch(t.Context(), fetchEnv{rc: rc, metrics: NoopMetricsCollector{}}, store, syncRes(LocationPersistent), "a")

	require.NoError(t, f.Err())
	assert.Equal(t, []byte("hello"), f.Bytes())
	store.AssertExpectations(t)
	blob.AssertExpectations(t)
}

func TestBlobFetcher_ReadAtFailure(t *testing.T) {
	boom := errors.New("disk on fire")

	blob := new(MockBlob)
	blob.On("Size").Return(int64(5))
	blob.On("ReadAt", mock.Anything, mock.Anything, int64(0)).Return(nil, boom)
	blob.On("Close").Return(nil)

	store := new(MockBlobStore)
	store.On("Open", mock.Anything, "a").Return(blob, nil)

	rc := resource.NewController(resource.Config{})
	f := startBlobFetch(t.Context(), fetchEnv{rc: rc, metrics: NoopMetricsCollector{}}, store, syncRes(LocationPersistent), "a")

	require.ErrorIs(t, f.Err(), boom)
	var fe *FetchError
	require.ErrorAs(t, f.Err(), &fe)
	assert.Equal(t, "a", fe.Path)
	assert.Zero(t, rc.MemoryUsage())
}

// countingMemoryStore counts Open and Fetch calls on a MemoryStore.
type countingMemoryStore struct {
	*blobstore.MemoryStore
	opens   atomic.Int32
	fetches atomic.Int32
}

func (s *countingMemoryStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	s.opens.Add(1)
	return s.MemoryStore.Open(ctx, name)
}

func (s *countingMemoryStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.fetches.Add(1)
	return s.MemoryStore.Fetch(ctx, name)
}

func TestBlobFetcher_OpensBlobOnce(t *testing.T) {
	store := &countingMemoryStore{MemoryStore: blobstore.NewMemoryStore()}
	require.NoError(t, store.Put(t.Context(), "a", []byte("payload")))

	f := startBlobFetch(t.Context(), fetchEnv{metrics: NoopMetricsCollector{}}, store, syncRes(LocationPersistent), "a")

	require.NoError(t, f.Err())
	assert.Equal(t, []byte("payload"), f.Bytes())
	assert.Equal(t, int32(1), store.opens.Load())
	assert.Zero(t, store.fetches.Load())
}

func TestBlobFetcher_IOLimitPacesReads(t *testing.T) {
	start := time.Now()
	var secondRead time.Duration

	chunk := mock.MatchedBy(func(p []byte) bool { return len(p) == 8 })

	blob := new(MockBlob)
	blob.On("Size").Return(int64(16))
	blob.On("ReadAt", mock.Anything, chunk, int64(0)).Return([]byte("01234567"), nil).Once()
	blob.On("ReadAt", mock.Anything, chunk, int64(8)).Return([]byte("89abcdef"), nil).Once().
		Run(func(mock.Arguments) { secondRead = time.Since(start) })
	blob.On("Close").Return(nil)

	store := new(MockBlobStore)
	store.On("Open", mock.Anything, "a").Return(blob, nil)

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 8})
	f := startBlobFetch(t.Context(), fetchEnv{rc: rc, metrics: NoopMetricsCollector{}}, store, syncRes(LocationPersistent), "a")

	require.NoError(t, f.Err())
	assert.Equal(t, []byte("0123456789abcdef"), f.Bytes())
	assert.GreaterOrEqual(t, secondRead, 900*time.Millisecond, "the second chunk waits for tokens before it is read")
	blob.AssertExpectations(t)
}

func TestFailedFetcher(t *testing.T) {
	f := failedFetcher(ErrNoBackend)
	assert.True(t, f.IsCompleted())
	assert.False(t, f.IsSuccess())
	assert.Nil(t, f.Bytes())
	f.Release()
	require.ErrorIs(t, f.Err(), ErrNoBackend)
}
