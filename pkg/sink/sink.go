package sink

import (
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/stats"
)

// Sink persists routed records. Append failures are reported per record;
// the caller decides whether to keep going.
type Sink interface {
	Append(r commtypes.Record) error
	Name() string
	Flush() error
	Close() error
}

type MeteredSink interface {
	Sink
	GetCount() uint64
	GetFailed() uint64
}

// meteredSink counts successful and failed appends. It is owned by a single
// writer goroutine, so the counters need no synchronisation.
type meteredSink struct {
	sink   Sink
	count  stats.Counter
	failed stats.Counter
}

var _ = MeteredSink(&meteredSink{})

func NewMeteredSink(s Sink) MeteredSink {
	return &meteredSink{
		sink:   s,
		count:  stats.NewCounter(s.Name() + "_appended"),
		failed: stats.NewCounter(s.Name() + "_failed"),
	}
}

func (s *meteredSink) Append(r commtypes.Record) error {
	if err := s.sink.Append(r); err != nil {
		s.failed.Tick(1)
		return err
	}
	s.count.Tick(1)
	return nil
}

func (s *meteredSink) Name() string {
	return s.sink.Name()
}

func (s *meteredSink) Flush() error {
	return s.sink.Flush()
}

func (s *meteredSink) Close() error {
	return s.sink.Close()
}

func (s *meteredSink) GetCount() uint64 {
	return s.count.GetCount()
}

func (s *meteredSink) GetFailed() uint64 {
	return s.failed.GetCount()
}
