package assetload

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(id uint32, key string) (*LoadTask, *fakeFetcher) {
	deps := taskDeps{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
		newDecoder: func(path string, data []byte) ArtifactDecoder {
			return &fakeDecoder{path: path, data: data}
		},
	}
	t := newLoadTask(id, key, key, Resolution{Mode: ModeStreamingFetch, Location: LocationStreaming, Backend: BackendNetwork}, deps)
	f := &fakeFetcher{name: key}
	t.start(f)
	return t, f
}

func TestLoadRegistry_SharedAcquire(t *testing.T) {
	r := NewLoadRegistry()
	creates := 0
	create := func() *LoadTask {
		creates++
		task, _ := newTestTask(uint32(creates), "bundleC")
		return task
	}

	first, created := r.Acquire("bundleC", create)
	require.True(t, created)
	second, created := r.Acquire("bundleC", create)
	require.False(t, created)

	assert.Same(t, first, second)
	assert.Equal(t, 1, creates)
	assert.Equal(t, 2, r.RefCount("bundleC"))

	r.Release(first)
	assert.Equal(t, 1, r.RefCount("bundleC"))
	assert.Equal(t, StateFetching, first.State())

	// Finish the task, then drop the last reference.
	first.fetcher.(*fakeFetcher).fail(ErrNotFound)
	first.Advance()
	require.Equal(t, StateFinished, first.State())

	r.Release(second)
	assert.Equal(t, StateDisposed, first.State())
	assert.Zero(t, r.Len())
	assert.Zero(t, r.RefCount("bundleC"))

	// Unknown and already removed tasks are ignored.
	r.Release(first)
	other, _ := newTestTask(99, "other")
	r.Release(other)
	assert.Equal(t, StateFetching, other.State())
}

func TestLoadRegistry_DrainingUntilDisposed(t *testing.T) {
	r := NewLoadRegistry()
	task, f := newTestTask(1, "k")
	r.Acquire("k", func() *LoadTask { return task })

	r.Release(task)
	assert.Equal(t, 1, r.Len(), "running task stays registered")
	assert.Zero(t, r.RefCount("k"))

	task.Advance()
	assert.Equal(t, StateDisposed, task.State())
	assert.Equal(t, 1, f.releaseCount())
	assert.Zero(t, r.Len())
}

func TestLoadRegistry_Revive(t *testing.T) {
	r := NewLoadRegistry()
	task, _ := newTestTask(1, "k")
	r.Acquire("k", func() *LoadTask { return task })
	r.Release(task)

	again, created := r.Acquire("k", func() *LoadTask {
		t.Fatal("revived entry must not create a task")
		return nil
	})
	require.False(t, created)
	assert.Same(t, task, again)
	assert.Equal(t, 1, r.RefCount("k"))

	task.Advance()
	assert.Equal(t, StateFetching, task.State(), "dispose request was withdrawn")
}

func TestLoadRegistry_ReplacesDisposedEntry(t *testing.T) {
	r := NewLoadRegistry()
	old, _ := newTestTask(1, "k")
	r.Acquire("k", func() *LoadTask { return old })

	// Disposed while draining, before its disposal hook ran.
	r.mu.Lock()
	r.entries["k"].refCount = 0
	r.entries["k"].draining = true
	r.mu.Unlock()
	old.mu.Lock()
	old.state = StateDisposed
	old.mu.Unlock()

	replacement, _ := newTestTask(2, "k")
	got, created := r.Acquire("k", func() *LoadTask { return replacement })
	require.True(t, created)
	assert.Same(t, replacement, got)

	// The stale hook must not remove the new entry.
	r.disposed(old)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.RefCount("k"))
}

func TestLoadRegistry_AcquireAfterDisposal(t *testing.T) {
	r := NewLoadRegistry()
	old, _ := newTestTask(1, "k")
	r.Acquire("k", func() *LoadTask { return old })
	r.Release(old)
	old.Advance()
	require.Equal(t, StateDisposed, old.State())
	require.Zero(t, r.Len())

	fresh, _ := newTestTask(2, "k")
	got, created := r.Acquire("k", func() *LoadTask { return fresh })
	assert.True(t, created)
	assert.Same(t, fresh, got)
}

func TestLoadRegistry_ConcurrentAcquire(t *testing.T) {
	r := NewLoadRegistry()
	var mu sync.Mutex
	creates := 0

	const n = 32
	tasks := make([]*LoadTask, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks[i], _ = r.Acquire("shared", func() *LoadTask {
				mu.Lock()
				creates++
				mu.Unlock()
				task, _ := newTestTask(1, "shared")
				return task
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creates)
	assert.Equal(t, n, r.RefCount("shared"))
	for _, task := range tasks {
		assert.Same(t, tasks[0], task)
	}

	for _, task := range tasks {
		r.Release(task)
	}
	assert.Zero(t, r.RefCount("shared"))
	tasks[0].Advance()
	assert.Zero(t, r.Len())
}

func TestLoadRegistry_Tasks(t *testing.T) {
	r := NewLoadRegistry()
	for i, key := range []string{"c", "a", "b"} {
		task, _ := newTestTask(uint32(i+1), key)
		r.Acquire(key, func() *LoadTask { return task })
	}

	var keys []string
	for _, task := range r.Tasks() {
		keys = append(keys, task.PhysicalPath())
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	task, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, uint32(3), task.ID())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}
