package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consumerFixture struct {
	broker  *transport.MemBroker
	sender  transport.Sender
	valid   *bounded_queue.BoundedQueue[commtypes.Record]
	invalid *bounded_queue.BoundedQueue[commtypes.Record]
	pool    *ConsumerPool
}

func newConsumerFixture(t *testing.T, workers int, capacity int) *consumerFixture {
	t.Helper()
	broker := transport.NewMemBroker("consume", 100)
	sender, err := broker.NewSender(context.Background())
	require.NoError(t, err)
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](capacity)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](capacity)
	pool := NewConsumerPool(broker, commtypes.RecordJSONSerdeG{}, valid, invalid, ConsumerConfig{
		Workers:     workers,
		PollTimeout: 5 * time.Millisecond,
	}, nil)
	return &consumerFixture{broker: broker, sender: sender, valid: valid, invalid: invalid, pool: pool}
}

func (f *consumerFixture) send(t *testing.T, r commtypes.Record) {
	t.Helper()
	payload, err := commtypes.RecordJSONSerdeG{}.Encode(r)
	require.NoError(t, err)
	require.NoError(t, f.sender.Send(context.Background(), payload))
}

func (f *consumerFixture) sendPill(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sender.Send(context.Background(), []byte(transport.PoisonPill)))
}

func TestConsumerPoisonPillStopsWithoutCounting(t *testing.T) {
	f := newConsumerFixture(t, 1, 10)
	f.sendPill(t)
	require.NoError(t, f.pool.Start(context.Background()))
	results, err := f.pool.Wait(time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(0), results[0].Consumed)
	assert.Equal(t, 0, f.valid.Len())
	assert.Equal(t, 0, f.invalid.Len())
}

func TestConsumerExtraPillsAreHarmless(t *testing.T) {
	f := newConsumerFixture(t, 2, 10)
	for i := 0; i < 4; i++ {
		f.sendPill(t)
	}
	require.NoError(t, f.pool.Start(context.Background()))
	_, err := f.pool.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, f.broker.Pending())
}

func TestConsumerRoutesByValidity(t *testing.T) {
	f := newConsumerFixture(t, 3, 10)
	f.send(t, validRecord())
	f.send(t, invalidRecord())
	f.send(t, invalidRecord())
	for i := 0; i < 3; i++ {
		f.sendPill(t)
	}
	require.NoError(t, f.pool.Start(context.Background()))
	results, err := f.pool.Wait(time.Second)
	require.NoError(t, err)

	var consumed, valid, invalid uint64
	for _, r := range results {
		consumed += r.Consumed
		valid += r.Valid
		invalid += r.Invalid
	}
	assert.Equal(t, uint64(3), consumed)
	assert.Equal(t, uint64(1), valid)
	assert.Equal(t, uint64(2), invalid)
	assert.Equal(t, 1, f.valid.Len())
	assert.Equal(t, 2, f.invalid.Len())
}

func TestConsumerDropsUndecodable(t *testing.T) {
	f := newConsumerFixture(t, 1, 10)
	require.NoError(t, f.sender.Send(context.Background(), []byte("{not json")))
	f.send(t, validRecord())
	f.sendPill(t)
	require.NoError(t, f.pool.Start(context.Background()))
	results, err := f.pool.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), results[0].DecodeFailed)
	assert.Equal(t, uint64(1), results[0].Consumed)
	assert.Equal(t, 1, f.valid.Len())
}

func TestConsumerKeepsPollingWhenEmpty(t *testing.T) {
	f := newConsumerFixture(t, 1, 10)
	require.NoError(t, f.pool.Start(context.Background()))
	select {
	case <-f.pool.Done():
		t.Fatal("consumer stopped on an empty poll")
	case <-time.After(50 * time.Millisecond):
	}
	f.send(t, validRecord())
	f.sendPill(t)
	results, err := f.pool.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), results[0].Consumed)
}

func TestConsumerBackpressure(t *testing.T) {
	const capacity = 2
	f := newConsumerFixture(t, 1, capacity)
	for i := 0; i < capacity+1; i++ {
		f.send(t, invalidRecord())
	}
	f.sendPill(t)
	require.NoError(t, f.pool.Start(context.Background()))

	assert.Eventually(t, func() bool { return f.invalid.Len() == capacity }, time.Second, time.Millisecond)
	// the (K+1)-th push is stuck until a slot frees up
	select {
	case <-f.pool.Done():
		t.Fatal("consumer finished while the invalid queue was full")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, f.broker.Pending())

	_, ok := f.invalid.Pop(0)
	require.True(t, ok)
	results, err := f.pool.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(capacity+1), results[0].Consumed)
	assert.Equal(t, capacity, f.invalid.Len())
}

func TestConsumerCancelledWhileBlocked(t *testing.T) {
	f := newConsumerFixture(t, 1, 1)
	f.send(t, invalidRecord())
	f.send(t, invalidRecord())
	require.NoError(t, f.pool.Start(context.Background()))
	assert.Eventually(t, func() bool { return f.invalid.Len() == 1 }, time.Second, time.Millisecond)

	results, err := f.pool.Wait(30 * time.Millisecond)
	assert.True(t, errors.Is(err, common_errors.ErrShutdownTimeout))
	assert.Equal(t, uint64(1), results[0].Consumed)
}

func TestConsumerStartFailureClosesAcquired(t *testing.T) {
	broker := newFlakyBroker()
	broker.failReceiverAt = 2
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](1)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](1)
	pool := NewConsumerPool(broker, commtypes.RecordJSONSerdeG{}, valid, invalid, ConsumerConfig{Workers: 3}, nil)
	err := pool.Start(context.Background())
	assert.True(t, errors.Is(err, common_errors.ErrPoolStart))
	assert.Equal(t, int32(1), broker.closed.Load())
}
