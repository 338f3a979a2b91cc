package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/transport"
)

var errConnRefused = errors.New("connection refused")

func validRecord() commtypes.Record {
	return commtypes.Record{Name: "Andrew Zaika", Eddr: "19760506-26583", Count: 42, Date: commtypes.Today()}
}

func invalidRecord() commtypes.Record {
	return commtypes.Record{Name: "Andrew Zaika", Eddr: "19760506-26580", Count: 5, Date: commtypes.Today()}
}

// flakyBroker wraps a broker and fails the n-th sender or receiver request.
type flakyBroker struct {
	transport.Broker
	failSenderAt   int
	failReceiverAt int
	senders        int
	receivers      int
	sendDelay      time.Duration
	closed         atomic.Int32
}

func newFlakyBroker() *flakyBroker {
	return &flakyBroker{Broker: transport.NewMemBroker("flaky", 0)}
}

func (b *flakyBroker) NewSender(ctx context.Context) (transport.Sender, error) {
	b.senders++
	if b.senders == b.failSenderAt {
		return nil, errConnRefused
	}
	s, err := b.Broker.NewSender(ctx)
	if err != nil {
		return nil, err
	}
	return &trackedSender{Sender: s, broker: b}, nil
}

func (b *flakyBroker) NewReceiver(ctx context.Context) (transport.Receiver, error) {
	b.receivers++
	if b.receivers == b.failReceiverAt {
		return nil, errConnRefused
	}
	r, err := b.Broker.NewReceiver(ctx)
	if err != nil {
		return nil, err
	}
	return &trackedReceiver{Receiver: r, broker: b}, nil
}

type trackedSender struct {
	transport.Sender
	broker *flakyBroker
}

func (s *trackedSender) Send(ctx context.Context, payload []byte) error {
	if s.broker.sendDelay > 0 {
		t := time.NewTimer(s.broker.sendDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return s.Sender.Send(ctx, payload)
}

func (s *trackedSender) Close() error {
	s.broker.closed.Add(1)
	return s.Sender.Close()
}

type trackedReceiver struct {
	transport.Receiver
	broker *flakyBroker
}

func (r *trackedReceiver) Close() error {
	r.broker.closed.Add(1)
	return r.Receiver.Close()
}

// memorySink keeps appended records; failEvery > 0 rejects every n-th append.
type memorySink struct {
	mu          sync.Mutex
	name        string
	records     []commtypes.Record
	failEvery   int
	appendDelay time.Duration
	appends     int
	closed      bool
}

func newMemorySink(name string) *memorySink {
	return &memorySink{name: name}
}

func (s *memorySink) Append(r commtypes.Record) error {
	if s.appendDelay > 0 {
		time.Sleep(s.appendDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.failEvery > 0 && s.appends%s.failEvery == 0 {
		return errors.New("disk full")
	}
	s.records = append(s.records, r)
	return nil
}

func (s *memorySink) Name() string { return s.name }
func (s *memorySink) Flush() error { return nil }

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) Records() []commtypes.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]commtypes.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *memorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fixedGenerator struct {
	records []commtypes.Record
	next    int
}

func (g *fixedGenerator) Generate() commtypes.Record {
	r := g.records[g.next%len(g.records)]
	g.next++
	return r
}

func alternatingGenerator(seed int64) RecordGenerator {
	return &fixedGenerator{records: []commtypes.Record{validRecord(), invalidRecord()}}
}
