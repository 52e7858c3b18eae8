package assetload

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/resource"
	"github.com/hupe1980/assetload/internal/worker"
)

// ByteFetcher retrieves the raw bytes of one bundle. It is polled by the
// owning LoadTask; failures are reported through IsSuccess and Err, never
// by panicking.
type ByteFetcher interface {
	// IsCompleted reports whether the fetch has ended.
	IsCompleted() bool
	// IsSuccess reports whether the fetch produced bytes. Valid once completed.
	IsSuccess() bool
	// Bytes returns the fetched buffer. Valid once completed and successful,
	// and only until Release.
	Bytes() []byte
	// Err returns the failure cause. Valid once completed.
	Err() error
	// Release drops the buffer and cancels an in-flight read. Idempotent.
	Release()
}

// FetcherFactory creates the fetcher for name under res. name is the
// cleaned logical path; the fetcher must start work before returning.
type FetcherFactory func(ctx context.Context, res Resolution, name string) ByteFetcher

type fetchEnv struct {
	stores  map[StorageLocation]blobstore.BlobStore
	rc      *resource.Controller
	pool    *worker.Pool
	metrics MetricsCollector
}

// newFetcherFactory returns the default factory, reading whole blobs from
// the store registered for each location.
func newFetcherFactory(env fetchEnv) FetcherFactory {
	return func(ctx context.Context, res Resolution, name string) ByteFetcher {
		store, ok := env.stores[res.Location]
		if !ok {
			return failedFetcher(&FetchError{Path: name, Location: res.Location, cause: ErrNoBackend})
		}
		return startBlobFetch(ctx, env, store, res, name)
	}
}

// blobFetcher reads one blob from a BlobStore. Synchronous modes read on the
// calling goroutine; the others read on the worker pool.
type blobFetcher struct {
	name     string
	location StorageLocation
	store    blobstore.BlobStore
	rc       *resource.Controller
	metrics  MetricsCollector

	ctx    context.Context
	cancel context.CancelFunc

	completed atomic.Bool

	mu       sync.Mutex
	data     []byte
	reserved int64
	err      error
	released bool
}

func startBlobFetch(ctx context.Context, env fetchEnv, store blobstore.BlobStore, res Resolution, name string) *blobFetcher {
	// A shared task outlives the request that created it; only Release cancels.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	f := &blobFetcher{
		name:     name,
		location: res.Location,
		store:    store,
		rc:       env.rc,
		metrics:  env.metrics,
		ctx:      ctx,
		cancel:   cancel,
	}

	if res.Mode.Synchronous() || env.pool == nil {
		f.run()
		return f
	}

	if err := env.pool.Submit(ctx, f.run); err != nil {
		f.complete(nil, 0, &FetchError{Path: name, Location: res.Location, cause: err})
	}
	return f
}

func (f *blobFetcher) run() {
	start := time.Now()

	data, reserved, err := f.read()
	if err != nil {
		err = &FetchError{Path: f.name, Location: f.location, cause: translateError(err)}
	}

	f.metrics.RecordFetch(f.location, len(data), time.Since(start), err)
	f.complete(data, reserved, err)
}

func (f *blobFetcher) read() ([]byte, int64, error) {
	ctx := f.ctx

	if err := f.rc.AcquireFetch(ctx); err != nil {
		return nil, 0, err
	}
	defer f.rc.ReleaseFetch()

	blob, err := f.store.Open(ctx, f.name)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = blob.Close() }()

	size := blob.Size()
	if err := f.rc.AcquireMemory(size); err != nil {
		return nil, 0, err
	}

	// Each read waits for IO tokens before it reaches the backend.
	data := make([]byte, size)
	r := io.NewSectionReader(blobReaderAt{ctx: ctx, blob: blob}, 0, size)
	if _, err := io.ReadFull(resource.NewRateLimitedReader(ctx, r, f.rc), data); err != nil {
		f.rc.ReleaseMemory(size)
		return nil, 0, err
	}

	return data, size, nil
}

func (f *blobFetcher) complete(data []byte, reserved int64, err error) {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		f.rc.ReleaseMemory(reserved)
		f.completed.Store(true)
		return
	}
	f.data = data
	f.reserved = reserved
	f.err = err
	f.mu.Unlock()

	f.completed.Store(true)
}

func (f *blobFetcher) IsCompleted() bool {
	return f.completed.Load()
}

func (f *blobFetcher) IsSuccess() bool {
	if !f.IsCompleted() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err == nil && !f.released
}

func (f *blobFetcher) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func (f *blobFetcher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *blobFetcher) Release() {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	f.data = nil
	reserved := f.reserved
	f.reserved = 0
	f.mu.Unlock()

	f.cancel()
	f.rc.ReleaseMemory(reserved)
}

// blobReaderAt adapts a context-aware Blob to io.ReaderAt.
type blobReaderAt struct {
	ctx  context.Context
	blob blobstore.Blob
}

func (r blobReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return r.blob.ReadAt(r.ctx, p, off)
}

// staticFetcher is a fetcher that completed at construction.
type staticFetcher struct {
	data []byte
	err  error
	mu   sync.Mutex
}

func failedFetcher(err error) ByteFetcher {
	return &staticFetcher{err: err}
}

func (f *staticFetcher) IsCompleted() bool { return true }
func (f *staticFetcher) IsSuccess() bool   { return f.err == nil }
func (f *staticFetcher) Err() error        { return f.err }

func (f *staticFetcher) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func (f *staticFetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
}
