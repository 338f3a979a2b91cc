package pipeline

import (
	"context"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/sink"
	"mq-pipeline-bench/pkg/stats"

	"github.com/rs/zerolog/log"
)

const DEFAULT_WRITER_POLL_INTERVAL = time.Duration(50) * time.Millisecond

const (
	RouteValid   = "valid"
	RouteInvalid = "invalid"
)

type WriterConfig struct {
	PollInterval time.Duration
}

type route struct {
	name  string
	queue *bounded_queue.BoundedQueue[commtypes.Record]
	sink  sink.MeteredSink
}

// WriterPool has one worker per sink. A worker stops only after it has
// seen both an empty queue and the upstream done signal.
type WriterPool struct {
	cfg          WriterConfig
	routes       []route
	upstreamDone <-chan struct{}
	metrics      *stats.Metrics
	pool         *workerPool
}

func NewWriterPool(valid, invalid *bounded_queue.BoundedQueue[commtypes.Record], validSink, invalidSink sink.Sink,
	upstreamDone <-chan struct{}, cfg WriterConfig, metrics *stats.Metrics,
) *WriterPool {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DEFAULT_WRITER_POLL_INTERVAL
	}
	return &WriterPool{
		cfg: cfg,
		routes: []route{
			{name: RouteValid, queue: valid, sink: sink.NewMeteredSink(validSink)},
			{name: RouteInvalid, queue: invalid, sink: sink.NewMeteredSink(invalidSink)},
		},
		upstreamDone: upstreamDone,
		metrics:      metrics,
	}
}

func (w *WriterPool) Start(ctx context.Context) {
	w.pool = newWorkerPool(ctx, "writer", len(w.routes))
	for i, r := range w.routes {
		rt := r
		w.pool.launch(i, func(ctx context.Context) stats.WorkerResult {
			return w.run(ctx, rt)
		})
	}
	w.pool.seal()
	log.Info().Dur("pollInterval", w.cfg.PollInterval).Msg("writer pool started")
}

func (w *WriterPool) run(ctx context.Context, rt route) stats.WorkerResult {
	startTime := time.Now()
	defer func() {
		if err := rt.sink.Close(); err != nil {
			log.Error().Err(err).Str("sink", rt.sink.Name()).Msg("close sink")
		}
	}()
	for {
		// a steady supply of records must not hide cancellation
		if ctx.Err() != nil {
			log.Warn().Str("writer", rt.name).Int("remaining", rt.queue.Len()).Msg("writer cancelled before queue drained")
			return w.result(rt, startTime)
		}
		rec, ok := rt.queue.Pop(w.cfg.PollInterval)
		if ok {
			if err := rt.sink.Append(rec); err != nil {
				log.Warn().Err(err).Str("sink", rt.sink.Name()).Str("record", rec.String()).Msg("append failed, dropping")
				w.metrics.IncSinkFailed(rt.name)
			} else {
				w.metrics.IncWritten(rt.name)
			}
			w.metrics.SetQueueDepth(rt.name, rt.queue.Len())
			continue
		}
		select {
		case <-w.upstreamDone:
			if rt.queue.Len() == 0 {
				return w.result(rt, startTime)
			}
		case <-ctx.Done():
		default:
		}
	}
}

func (w *WriterPool) result(rt route, startTime time.Time) stats.WorkerResult {
	return stats.WorkerResult{
		Worker:     "writer-" + rt.name,
		Written:    rt.sink.GetCount(),
		SinkFailed: rt.sink.GetFailed(),
		Elapsed:    time.Since(startTime),
	}
}

func (w *WriterPool) Done() <-chan struct{} {
	return w.pool.Done()
}

func (w *WriterPool) Wait(grace time.Duration) ([]stats.WorkerResult, error) {
	return w.pool.shutdown(grace)
}

func (w *WriterPool) abort() []stats.WorkerResult {
	return w.pool.abort()
}
