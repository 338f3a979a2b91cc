package transport

import (
	"context"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
)

const DefaultMemCapacity = 10000

// MemBroker is an in-process queue with the same at-most-once semantics as
// the external brokers. Every sender and receiver shares one bounded queue.
type MemBroker struct {
	name  string
	queue *bounded_queue.BoundedQueue[[]byte]
}

var _ = Broker(&MemBroker{})

func NewMemBroker(destination string, capacity int) *MemBroker {
	if capacity <= 0 {
		capacity = DefaultMemCapacity
	}
	return &MemBroker{
		name:  destination,
		queue: bounded_queue.NewBoundedQueue[[]byte](capacity),
	}
}

func (b *MemBroker) Name() string {
	return "mem://" + b.name
}

func (b *MemBroker) NewSender(ctx context.Context) (Sender, error) {
	return memSender{queue: b.queue}, nil
}

func (b *MemBroker) NewReceiver(ctx context.Context) (Receiver, error) {
	return memReceiver{queue: b.queue}, nil
}

// Pending returns the number of messages not yet received.
func (b *MemBroker) Pending() int {
	return b.queue.Len()
}

func (b *MemBroker) Close() error {
	b.queue.Close()
	return nil
}

type memSender struct {
	queue *bounded_queue.BoundedQueue[[]byte]
}

func (s memSender) Send(ctx context.Context, payload []byte) error {
	if err := checkPayload(payload); err != nil {
		return err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return s.queue.Push(ctx, buf)
}

func (s memSender) Close() error {
	return nil
}

type memReceiver struct {
	queue *bounded_queue.BoundedQueue[[]byte]
}

func (r memReceiver) Receive(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, false, err
	}
	if timeout <= 0 {
		raw, ok := r.queue.Pop(0)
		if !ok {
			return Message{}, false, nil
		}
		return Classify(raw), true, nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := r.queue.PopContext(waitCtx)
	if err != nil {
		// the caller's cancellation is an error, our own deadline is not
		if perr := ctx.Err(); perr != nil {
			return Message{}, false, perr
		}
		return Message{}, false, nil
	}
	return Classify(raw), true, nil
}

func (r memReceiver) Close() error {
	return nil
}
