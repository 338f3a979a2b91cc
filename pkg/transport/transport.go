// Package transport is the queue-backed channel between producers and
// consumers. The pipeline only sees Sender and Receiver; which broker backs
// them is a configuration choice.
package transport

import (
	"context"
	"strings"
	"time"

	"mq-pipeline-bench/pkg/common_errors"

	"golang.org/x/xerrors"
)

// PoisonPill is the reserved payload telling one consumer to stop. It is
// neither a JSON object nor a msgp map, so it never decodes as a record.
const PoisonPill = "POISON PILL"

type MessageKind uint8

const (
	DataMessage MessageKind = iota
	ShutdownMessage
)

// Message is what a Receiver hands to a consumer: either a data payload or
// the shutdown marker. The marker never travels past the consumer loop.
type Message struct {
	Kind    MessageKind
	Payload []byte
}

func Data(payload []byte) Message {
	return Message{Kind: DataMessage, Payload: payload}
}

func Shutdown() Message {
	return Message{Kind: ShutdownMessage}
}

func (m Message) IsShutdown() bool {
	return m.Kind == ShutdownMessage
}

// Classify turns a raw transport payload into a Message.
func Classify(raw []byte) Message {
	if string(raw) == PoisonPill {
		return Shutdown()
	}
	return Data(raw)
}

// checkPayload rejects empty payloads. An empty value is indistinguishable
// from a missing one on the external brokers.
func checkPayload(payload []byte) error {
	if len(payload) == 0 {
		return common_errors.ErrEmptyPayload
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type Receiver interface {
	// Receive waits up to timeout for the next message. ok is false when
	// nothing arrived in time, which is not an error.
	Receive(ctx context.Context, timeout time.Duration) (msg Message, ok bool, err error)
	Close() error
}

// Broker hands out one connection per worker.
type Broker interface {
	Name() string
	NewSender(ctx context.Context) (Sender, error)
	NewReceiver(ctx context.Context) (Receiver, error)
	Close() error
}

type Kind string

const (
	KindMem   Kind = "mem"
	KindRedis Kind = "redis"
	KindKafka Kind = "kafka"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindMem, nil
	case KindMem, KindRedis, KindKafka:
		return k, nil
	default:
		return "", xerrors.Errorf("%q: %w", s, common_errors.ErrUnknownTransport)
	}
}

type Options struct {
	Kind        Kind
	URL         string
	User        string
	Password    string
	Destination string
	// Partitions is the number of consumer workers; the Kafka broker
	// creates that many partitions so each consumer owns one.
	Partitions int
	// MemCapacity bounds the in-process queue.
	MemCapacity int
	DialTimeout time.Duration
}

func NewBroker(ctx context.Context, opts Options) (Broker, error) {
	if opts.Destination == "" {
		return nil, xerrors.Errorf("destination name must not be empty: %w", common_errors.ErrInvalidConfig)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	switch opts.Kind {
	case KindMem, "":
		return NewMemBroker(opts.Destination, opts.MemCapacity), nil
	case KindRedis:
		return NewRedisBroker(opts)
	case KindKafka:
		return NewKafkaBroker(ctx, opts)
	default:
		return nil, xerrors.Errorf("%q: %w", opts.Kind, common_errors.ErrUnknownTransport)
	}
}

// BroadcastPoisonPill sends n poison pills through s and returns how many
// were accepted by the transport.
func BroadcastPoisonPill(ctx context.Context, s Sender, n int) (int, error) {
	sent := 0
	pill := []byte(PoisonPill)
	for i := 0; i < n; i++ {
		if err := s.Send(ctx, pill); err != nil {
			return sent, xerrors.Errorf("send poison pill %d/%d: %w", i+1, n, err)
		}
		sent++
	}
	return sent, nil
}
