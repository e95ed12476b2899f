package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	var n atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() { n.Add(1) }))
	}
	pool.Wait()
	assert.Equal(t, int64(100), n.Load())
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	assert.Positive(t, pool.Workers())
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	pool.Shutdown() // idempotent

	err := pool.Submit(context.Background(), func() {})
	assert.True(t, errors.Is(err, ErrPoolShutdown))
}

func TestWorkerPool_SubmitHonoursCancelledContext(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() {
		close(started)
		<-block
	}))
	<-started
	// Fill the buffer so the next Submit has to wait.
	require.NoError(t, pool.Submit(context.Background(), func() {}))
	require.NoError(t, pool.Submit(context.Background(), func() {}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	pool.Wait()
}

func TestWorkerPool_ShutdownDrainsQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1)

	var n atomic.Int64
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() { n.Add(1) }))
	}
	pool.Shutdown()
	pool.Wait()
	assert.Equal(t, int64(2), n.Load())
}
