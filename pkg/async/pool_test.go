package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, config PoolConfig) *WorkerPool {
	t.Helper()
	p := NewWorkerPool(context.Background(), config, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test", Workers: 3, Queue: 20})

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	assert.Equal(t, int32(10), ran.Load())
	completed, failed := p.Stats()
	assert.Equal(t, uint64(10), completed)
	assert.Zero(t, failed)
}

func TestWorkerPool_CountsFailuresAndPanics(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test", Workers: 2})

	require.NoError(t, p.Submit(func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, p.Submit(func(ctx context.Context) error { panic("kaboom") }))
	require.NoError(t, p.Submit(func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	completed, failed := p.Stats()
	assert.Equal(t, uint64(1), completed)
	assert.Equal(t, uint64(2), failed)
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test", Timeout: 20 * time.Millisecond})

	done := make(chan error, 1)
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled by its timeout")
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test", Workers: 1, Queue: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.NoError(t, p.Submit(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) error { return nil }), ErrQueueFull)
	close(release)
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test"})

	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
	// A second shutdown is harmless.
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestWorkerPool_ShutdownTimeoutCancelsTasks(t *testing.T) {
	p := newPool(t, PoolConfig{Name: "test", Timeout: time.Minute})

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Shutdown(ctx))
}
