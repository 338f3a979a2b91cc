package bounded_queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"mq-pipeline-bench/pkg/common_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := NewBoundedQueue[int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Push(ctx, i))
	}
	assert.Equal(t, 4, q.Len())
	for i := 0; i < 4; i++ {
		v, ok := q.Pop(0)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Pop(0)
	assert.False(t, ok)
}

func TestPopTimeout(t *testing.T) {
	q := NewBoundedQueue[string](1)
	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPushBlocksWhenFull(t *testing.T) {
	const capacity = 3
	ctx := context.Background()
	q := NewBoundedQueue[int](capacity)
	for i := 0; i < capacity; i++ {
		require.NoError(t, q.Push(ctx, i))
	}
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(tctx, 99), context.DeadlineExceeded)

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(ctx, capacity)
	}()
	select {
	case <-pushed:
		t.Fatal("push into a full queue should block")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := q.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	select {
	case err := <-pushed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push should proceed once a slot is drained")
	}
	assert.Equal(t, capacity, q.Len())
}

func TestPushHonoursContext(t *testing.T) {
	q := NewBoundedQueue[int](1)
	require.NoError(t, q.Push(context.Background(), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())
}

func TestPopContext(t *testing.T) {
	q := NewBoundedQueue[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.PopContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, q.Push(context.Background(), 7))
	v, err := q.PopContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	// queued items win over a finished context
	require.NoError(t, q.Push(context.Background(), 8))
	v, err = q.PopContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	tctx, tcancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer tcancel()
	start := time.Now()
	_, err = q.PopContext(tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	q := NewBoundedQueue[int](2)
	require.NoError(t, q.Push(ctx, 1))
	q.Close()
	err := q.Push(ctx, 2)
	assert.True(t, common_errors.IsQueueClosedError(err))
	v, ok := q.Pop(0)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	// the rejected push must not leak its slot
	err = q.Push(ctx, 3)
	assert.True(t, common_errors.IsQueueClosedError(err))
}

func TestConcurrentPushPop(t *testing.T) {
	const (
		producers = 4
		perWorker = 500
	)
	ctx := context.Background()
	q := NewBoundedQueue[int](8)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				assert.NoError(t, q.Push(ctx, p*perWorker+i))
			}
		}(p)
	}
	seen := make(map[int]struct{}, producers*perWorker)
	for len(seen) < producers*perWorker {
		v, ok := q.Pop(time.Second)
		require.True(t, ok, "queue drained early at %d items", len(seen))
		seen[v] = struct{}{}
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
