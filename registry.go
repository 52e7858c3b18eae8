package assetload

import (
	"sort"
	"sync"
)

type registryEntry struct {
	task     *LoadTask
	refCount int
	draining bool
}

// LoadRegistry maps physical paths to shared tasks and counts their
// holders. It guarantees at most one live task per key and is safe for
// concurrent use.
type LoadRegistry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	byTask  map[*LoadTask]*registryEntry

	onChange func(n int)
}

// NewLoadRegistry creates an empty registry.
func NewLoadRegistry() *LoadRegistry {
	return &LoadRegistry{
		entries: make(map[string]*registryEntry),
		byTask:  make(map[*LoadTask]*registryEntry),
	}
}

// Acquire returns the task for key, creating it with create if there is
// none. An existing task is returned even mid-flight, and a task whose
// disposal was requested but not yet carried out is revived. created
// reports whether create was called; create runs under the registry lock
// and must not start work, the caller starts a created task.
func (r *LoadRegistry) Acquire(key string, create func() *LoadTask) (task *LoadTask, created bool) {
	r.mu.Lock()

	if e, ok := r.entries[key]; ok {
		if !e.draining || e.task.revive() {
			e.refCount++
			e.draining = false
			r.mu.Unlock()
			return e.task, false
		}
		// Disposed while draining; its hook will find the entry replaced.
		delete(r.byTask, e.task)
		delete(r.entries, key)
	}

	t := create()
	e := &registryEntry{task: t, refCount: 1}
	r.entries[key] = e
	r.byTask[t] = e
	n := len(r.entries)
	r.mu.Unlock()

	t.onDisposed(r.disposed)
	r.notify(n)
	return t, true
}

// Release drops one reference to task. At zero the task is asked to
// dispose: a terminal task is disposed and removed at once, a running one
// stays registered until it observes the request. Releasing an unknown
// task is a no-op.
func (r *LoadRegistry) Release(task *LoadTask) {
	r.mu.Lock()

	e, ok := r.byTask[task]
	if !ok || e.refCount == 0 {
		r.mu.Unlock()
		return
	}

	e.refCount--
	if e.refCount > 0 {
		r.mu.Unlock()
		return
	}

	// Requested under the registry lock so a concurrent Acquire either
	// revives the task or replaces it, never both.
	task.requestDispose()

	terminal := task.State().Terminal()
	if terminal {
		r.removeLocked(e)
	} else {
		e.draining = true
	}
	n := len(r.entries)
	r.mu.Unlock()

	if terminal {
		task.Advance()
		r.notify(n)
	}
}

// disposed is the disposal hook of every registered task.
func (r *LoadRegistry) disposed(task *LoadTask) {
	r.mu.Lock()
	e, ok := r.byTask[task]
	if !ok || e.refCount > 0 {
		r.mu.Unlock()
		return
	}
	r.removeLocked(e)
	n := len(r.entries)
	r.mu.Unlock()

	r.notify(n)
}

func (r *LoadRegistry) removeLocked(e *registryEntry) {
	delete(r.byTask, e.task)
	if cur, ok := r.entries[e.task.physicalPath]; ok && cur == e {
		delete(r.entries, e.task.physicalPath)
	}
}

func (r *LoadRegistry) notify(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}

// Len returns the number of registered tasks.
func (r *LoadRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RefCount returns the number of holders of key, or 0 if it is not registered.
func (r *LoadRegistry) RefCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.refCount
	}
	return 0
}

// Lookup returns the task registered for key.
func (r *LoadRegistry) Lookup(key string) (*LoadTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.task, true
	}
	return nil, false
}

// Tasks returns the registered tasks ordered by physical path.
func (r *LoadRegistry) Tasks() []*LoadTask {
	r.mu.Lock()
	tasks := make([]*LoadTask, 0, len(r.entries))
	for _, e := range r.entries {
		tasks = append(tasks, e.task)
	}
	r.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].physicalPath < tasks[j].physicalPath
	})
	return tasks
}
