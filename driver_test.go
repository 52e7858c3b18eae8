package assetload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_TickAdvancesOnce(t *testing.T) {
	d := NewDriver()
	task, f := newTestTask(7, "k")
	d.Add(task)
	d.Add(task)
	require.Equal(t, 1, d.Pending())

	f.succeed([]byte("B"))
	assert.Equal(t, 1, d.Tick())
	assert.Equal(t, StateDecoding, task.State(), "one transition per tick")

	dec := task.decoder.(*fakeDecoder)
	dec.finish(&closerArtifact{})
	assert.Zero(t, d.Tick())
	assert.Equal(t, StateFinished, task.State())
	assert.Zero(t, d.Pending())
}

func TestDriver_TickOrder(t *testing.T) {
	d := NewDriver()

	var order []uint32
	for _, id := range []uint32{30, 10, 20} {
		task, f := newTestTask(id, "k")
		f.fail(ErrNotFound)
		task.onComplete(func(bool, any) { order = append(order, id) })
		d.Add(task)
	}

	assert.Zero(t, d.Tick())
	assert.Equal(t, []uint32{10, 20, 30}, order)
}

func TestDriver_Run(t *testing.T) {
	d := NewDriver()
	task, f := newTestTask(1, "k")
	d.Add(task)
	f.fail(ErrNotFound)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx, time.Millisecond) }()

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task not driven")
	}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}
