package assetload

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFetcher completes only when the test says so.
type fakeFetcher struct {
	name string
	res  Resolution

	mu        sync.Mutex
	completed bool
	data      []byte
	err       error
	released  int
}

func (f *fakeFetcher) succeed(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed, f.data = true, data
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed, f.err = true, err
}

func (f *fakeFetcher) IsCompleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fakeFetcher) IsSuccess() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed && f.err == nil
}

func (f *fakeFetcher) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func (f *fakeFetcher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeFetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	f.data = nil
}

func (f *fakeFetcher) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// fakeDecoder reports whatever progress the test sets.
type fakeDecoder struct {
	path string
	data []byte

	mu       sync.Mutex
	finished bool
	progress float64
	artifact any
	err      error
	disposed []bool
}

func (d *fakeDecoder) setProgress(p float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress = p
}

func (d *fakeDecoder) finish(artifact any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished, d.progress, d.artifact = true, 1, artifact
}

func (d *fakeDecoder) IsFinished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished
}

func (d *fakeDecoder) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

func (d *fakeDecoder) Artifact() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.artifact
}

func (d *fakeDecoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *fakeDecoder) Dispose(force bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposed = append(d.disposed, force)
}

func (d *fakeDecoder) disposeCalls() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.disposed...)
}

// closerArtifact records Close.
type closerArtifact struct {
	mu     sync.Mutex
	closed int
}

func (a *closerArtifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
	return nil
}

func (a *closerArtifact) closeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// harness wires a Loader to fake fetchers and decoders.
type harness struct {
	t       *testing.T
	loader  *Loader
	events  *EventBus
	metrics *BasicMetricsCollector

	mu       sync.Mutex
	fetchers []*fakeFetcher
	decoders []*fakeDecoder
	started  []LoadStartedEvent
	failed   []LoadFailedEvent
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		events:  NewEventBus(),
		metrics: &BasicMetricsCollector{},
	}
	h.events.OnLoadStarted(func(ev LoadStartedEvent) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.started = append(h.started, ev)
	})
	h.events.OnLoadFailed(func(ev LoadFailedEvent) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.failed = append(h.failed, ev)
	})

	base := []Option{
		WithEventBus(h.events),
		WithMetricsCollector(h.metrics),
		WithFetcherFactory(func(_ context.Context, res Resolution, name string) ByteFetcher {
			f := &fakeFetcher{name: name, res: res}
			h.mu.Lock()
			defer h.mu.Unlock()
			h.fetchers = append(h.fetchers, f)
			return f
		}),
		WithDecoderFactory(func(path string, data []byte) ArtifactDecoder {
			d := &fakeDecoder{path: path, data: data}
			h.mu.Lock()
			defer h.mu.Unlock()
			h.decoders = append(h.decoders, d)
			return d
		}),
	}

	l, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	h.loader = l
	return h
}

func (h *harness) fetcher(i int) *fakeFetcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Greater(h.t, len(h.fetchers), i, "fetcher %d not created", i)
	return h.fetchers[i]
}

func (h *harness) decoder(i int) *fakeDecoder {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Greater(h.t, len(h.decoders), i, "decoder %d not created", i)
	return h.decoders[i]
}

func (h *harness) counts() (fetchers, decoders, started, failed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fetchers), len(h.decoders), len(h.started), len(h.failed)
}

// callbackRecorder counts completion callbacks.
type callbackRecorder struct {
	mu       sync.Mutex
	calls    int
	ok       bool
	artifact any
}

func (r *callbackRecorder) fn(ok bool, artifact any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.ok, r.artifact = ok, artifact
}

func (r *callbackRecorder) result() (calls int, ok bool, artifact any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.ok, r.artifact
}
