package assetload

import (
	"context"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Driver advances pending tasks. Each Tick advances every pending task
// exactly once, in task id order, so no task moves more than one state
// per tick.
type Driver struct {
	mu      sync.Mutex
	pending *roaring.Bitmap
	tasks   map[uint32]*LoadTask
}

// NewDriver creates a driver with no pending tasks.
func NewDriver() *Driver {
	return &Driver{
		pending: roaring.New(),
		tasks:   make(map[uint32]*LoadTask),
	}
}

// Add schedules t until it becomes terminal. Adding a task twice is a no-op.
func (d *Driver) Add(t *LoadTask) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending.CheckedAdd(t.id) {
		d.tasks[t.id] = t
	}
}

func (d *Driver) contains(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.Contains(id)
}

// Pending returns the number of scheduled tasks.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.pending.GetCardinality())
}

// Tick advances each pending task once and drops the ones that became
// terminal. It returns the number of tasks still pending.
func (d *Driver) Tick() int {
	d.mu.Lock()
	ids := d.pending.ToArray()
	batch := make([]*LoadTask, len(ids))
	for i, id := range ids {
		batch[i] = d.tasks[id]
	}
	d.mu.Unlock()

	done := roaring.New()
	for _, t := range batch {
		t.Advance()
		if t.State().Terminal() {
			done.Add(t.id)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !done.IsEmpty() {
		d.pending.AndNot(done)
		it := done.Iterator()
		for it.HasNext() {
			delete(d.tasks, it.Next())
		}
	}
	return int(d.pending.GetCardinality())
}

// Run ticks every interval until ctx is done.
func (d *Driver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
		}
	}
}
