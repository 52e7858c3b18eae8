package assetload

import "sync"

// LoadStartedEvent is published once per task when its fetch begins.
type LoadStartedEvent struct {
	Path string // physical path
	Mode Mode
}

// LoadFailedEvent is published once per task that fails.
type LoadFailedEvent struct {
	Path string // physical path, or the logical path for configuration failures
	Err  error
}

// EventBus delivers load lifecycle events to subscribers. Handlers run
// synchronously on the goroutine that raised the event, in subscription
// order, and must not block. The zero value is ready to use.
type EventBus struct {
	mu      sync.RWMutex
	nextID  uint64
	started map[uint64]func(LoadStartedEvent)
	failed  map[uint64]func(LoadFailedEvent)
	order   []uint64
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// OnLoadStarted subscribes fn and returns a func that unsubscribes it.
func (b *EventBus) OnLoadStarted(fn func(LoadStartedEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started == nil {
		b.started = make(map[uint64]func(LoadStartedEvent))
	}
	id := b.add()
	b.started[id] = fn
	return b.remover(id)
}

// OnLoadFailed subscribes fn and returns a func that unsubscribes it.
func (b *EventBus) OnLoadFailed(fn func(LoadFailedEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failed == nil {
		b.failed = make(map[uint64]func(LoadFailedEvent))
	}
	id := b.add()
	b.failed[id] = fn
	return b.remover(id)
}

func (b *EventBus) add() uint64 {
	b.nextID++
	b.order = append(b.order, b.nextID)
	return b.nextID
}

func (b *EventBus) remover(id uint64) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.started, id)
			delete(b.failed, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *EventBus) publishStarted(ev LoadStartedEvent) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]func(LoadStartedEvent), 0, len(b.started))
	for _, id := range b.order {
		if fn, ok := b.started[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (b *EventBus) publishFailed(ev LoadFailedEvent) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]func(LoadFailedEvent), 0, len(b.failed))
	for _, id := range b.order {
		if fn, ok := b.failed[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
