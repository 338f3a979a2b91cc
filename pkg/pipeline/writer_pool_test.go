package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterDoesNotStopWhileUpstreamRuns(t *testing.T) {
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](10)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](10)
	validSink, invalidSink := newMemorySink("valid"), newMemorySink("invalid")
	upstreamDone := make(chan struct{})
	w := NewWriterPool(valid, invalid, validSink, invalidSink, upstreamDone,
		WriterConfig{PollInterval: 2 * time.Millisecond}, nil)
	w.Start(context.Background())

	select {
	case <-w.Done():
		t.Fatal("writers stopped on an empty queue before upstream finished")
	case <-time.After(30 * time.Millisecond):
	}
	require.NoError(t, valid.Push(context.Background(), validRecord()))
	require.NoError(t, invalid.Push(context.Background(), invalidRecord()))
	require.NoError(t, invalid.Push(context.Background(), invalidRecord()))
	close(upstreamDone)

	results, err := w.Wait(time.Second)
	require.NoError(t, err)
	total := stats.Fold(results)
	assert.Equal(t, uint64(3), total.Written)
	assert.Len(t, validSink.Records(), 1)
	assert.Len(t, invalidSink.Records(), 2)
	assert.True(t, validSink.Closed())
	assert.True(t, invalidSink.Closed())
}

func TestWriterDrainsBacklogAfterUpstreamDone(t *testing.T) {
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](100)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](100)
	for i := 0; i < 50; i++ {
		require.NoError(t, valid.Push(context.Background(), validRecord()))
	}
	validSink, invalidSink := newMemorySink("valid"), newMemorySink("invalid")
	upstreamDone := make(chan struct{})
	close(upstreamDone)
	w := NewWriterPool(valid, invalid, validSink, invalidSink, upstreamDone, WriterConfig{}, nil)
	w.Start(context.Background())
	_, err := w.Wait(time.Second)
	require.NoError(t, err)
	assert.Len(t, validSink.Records(), 50)
	assert.Equal(t, 0, valid.Len())
}

func TestWriterSinkFailureIsNotFatal(t *testing.T) {
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](10)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](10)
	for i := 0; i < 6; i++ {
		require.NoError(t, invalid.Push(context.Background(), invalidRecord()))
	}
	validSink, invalidSink := newMemorySink("valid"), newMemorySink("invalid")
	invalidSink.failEvery = 2
	upstreamDone := make(chan struct{})
	close(upstreamDone)
	w := NewWriterPool(valid, invalid, validSink, invalidSink, upstreamDone, WriterConfig{}, nil)
	w.Start(context.Background())
	results, err := w.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "writer-invalid", results[1].Worker)
	assert.Equal(t, uint64(3), results[1].Written)
	assert.Equal(t, uint64(3), results[1].SinkFailed)
}

func TestWriterStopsOnCancelWithBacklog(t *testing.T) {
	const backlog = 150
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](backlog)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](backlog)
	for i := 0; i < backlog; i++ {
		require.NoError(t, valid.Push(context.Background(), validRecord()))
	}
	validSink, invalidSink := newMemorySink("valid"), newMemorySink("invalid")
	validSink.appendDelay = 5 * time.Millisecond
	upstreamDone := make(chan struct{})
	close(upstreamDone)
	w := NewWriterPool(valid, invalid, validSink, invalidSink, upstreamDone, WriterConfig{}, nil)
	w.Start(context.Background())

	start := time.Now()
	results, err := w.Wait(50 * time.Millisecond)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, errors.Is(err, common_errors.ErrShutdownTimeout))
	written := stats.Fold(results).Written
	assert.Less(t, written, uint64(backlog))
	assert.Equal(t, backlog-int(written), valid.Len())
	assert.True(t, validSink.Closed())
}
