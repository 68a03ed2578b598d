package redisq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessBackend_fifo(t *testing.T) {
	b := NewInProcessBackend()
	ctx := context.Background()

	require.NoError(t, b.Push(ctx, "q", []byte("one")))
	require.NoError(t, b.Push(ctx, "q", []byte("two")))
	require.NoError(t, b.Push(ctx, "q", []byte("three")))

	n, err := b.Len(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, want := range []string{"one", "two", "three"} {
		payload, err := b.Pop(ctx, "q", time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, string(payload))
	}
}

func TestInProcessBackend_popTimeout(t *testing.T) {
	b := NewInProcessBackend()
	start := time.Now()
	_, err := b.Pop(context.Background(), "empty", 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestInProcessBackend_popWakesOnPush(t *testing.T) {
	b := NewInProcessBackend()
	ctx := context.Background()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = b.Push(ctx, "q", []byte("late"))
	}()

	payload, err := b.Pop(ctx, "q", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", string(payload))
}

func TestInProcessBackend_popHonorsContext(t *testing.T) {
	b := NewInProcessBackend()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := b.Pop(ctx, "q", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInProcessBackend_queuesAreIndependent(t *testing.T) {
	b := NewInProcessBackend()
	ctx := context.Background()

	require.NoError(t, b.Push(ctx, "a", []byte("for a")))
	require.NoError(t, b.Push(ctx, "b", []byte("for b")))

	payload, err := b.Pop(ctx, "b", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "for b", string(payload))

	payload, err = b.Pop(ctx, "a", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "for a", string(payload))
}

func TestInProcessBackend_flush(t *testing.T) {
	b := NewInProcessBackend()
	ctx := context.Background()

	require.NoError(t, b.Push(ctx, "q", []byte("one")))
	require.NoError(t, b.Push(ctx, "q", []byte("two")))
	require.NoError(t, b.Flush(ctx, "q"))

	n, err := b.Len(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = b.Pop(ctx, "q", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}
