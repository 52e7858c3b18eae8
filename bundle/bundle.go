package bundle

import (
	"slices"
	"sync"
)

// Bundle is a fully decoded and verified bundle held in memory.
// It is safe for concurrent use.
type Bundle struct {
	name string

	mu      sync.RWMutex
	entries map[string][]byte
	size    int64
	closed  bool
	onClose func()
}

func newBundle(name string, n int) *Bundle {
	return &Bundle{
		name:    name,
		entries: make(map[string][]byte, n),
	}
}

func (b *Bundle) put(name string, data []byte) {
	b.entries[name] = data
	b.size += int64(len(data))
}

// Name returns the logical path the bundle was loaded from.
func (b *Bundle) Name() string {
	return b.name
}

// Names returns the sorted entry names.
func (b *Bundle) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open returns the raw bytes of an entry. The returned slice must not be
// modified. After Close, Open always reports false.
func (b *Bundle) Open(name string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.entries[name]
	return data, ok
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Size returns the total raw size of all entries.
func (b *Bundle) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Closed reports whether the bundle has been unloaded.
func (b *Bundle) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Close unloads the bundle. It is idempotent.
func (b *Bundle) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.entries = map[string][]byte{}
	b.size = 0
	b.closed = true
	onClose := b.onClose
	b.onClose = nil
	b.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}
