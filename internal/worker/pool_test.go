package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedWork(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var (
		wg    sync.WaitGroup
		count atomic.Int32
	)
	for range 100 {
		wg.Add(1)
		require.NoError(t, p.Submit(t.Context(), func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(100), count.Load())
	assert.Equal(t, 4, p.Size())
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(1)
	p.Close()
	p.Close()

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CloseDrainsQueuedWork(t *testing.T) {
	p := NewPool(1)

	block := make(chan struct{})
	var ran atomic.Int32
	require.NoError(t, p.Submit(t.Context(), func() { <-block; ran.Add(1) }))
	require.NoError(t, p.Submit(t.Context(), func() { ran.Add(1) }))

	close(block)
	p.Close()

	assert.Equal(t, int32(2), ran.Load())
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	defer close(block)

	// One running, two queued: the queue is full.
	for range 3 {
		require.NoError(t, p.Submit(t.Context(), func() { <-block }))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Submit(ctx, func() {}), context.Canceled)
}
