package pipeline

import (
	"context"
	"fmt"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/debug"
	"mq-pipeline-bench/pkg/stats"
	"mq-pipeline-bench/pkg/transport"
	"mq-pipeline-bench/pkg/validation"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const DEFAULT_POLL_TIMEOUT = time.Duration(100) * time.Millisecond

type ConsumerConfig struct {
	Workers     int
	PollTimeout time.Duration
}

type ConsumerPool struct {
	cfg      ConsumerConfig
	broker   transport.Broker
	decoder  commtypes.DecoderG[commtypes.Record]
	valid    *bounded_queue.BoundedQueue[commtypes.Record]
	invalid  *bounded_queue.BoundedQueue[commtypes.Record]
	metrics  *stats.Metrics
	progress *stats.ConcurrentThroughputCounter
	pool     *workerPool
}

func NewConsumerPool(broker transport.Broker, decoder commtypes.DecoderG[commtypes.Record],
	valid, invalid *bounded_queue.BoundedQueue[commtypes.Record], cfg ConsumerConfig, metrics *stats.Metrics,
) *ConsumerPool {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DEFAULT_POLL_TIMEOUT
	}
	return &ConsumerPool{
		cfg:      cfg,
		broker:   broker,
		decoder:  decoder,
		valid:    valid,
		invalid:  invalid,
		metrics:  metrics,
		progress: stats.NewConcurrentThroughputCounter("consumed", stats.DEFAULT_PROGRESS_INTERVAL),
	}
}

func (c *ConsumerPool) Start(ctx context.Context) error {
	if c.cfg.Workers <= 0 {
		return xerrors.Errorf("consumer workers %d: %w", c.cfg.Workers, common_errors.ErrPoolStart)
	}
	receivers := make([]transport.Receiver, 0, c.cfg.Workers)
	for i := 0; i < c.cfg.Workers; i++ {
		r, err := c.broker.NewReceiver(ctx)
		if err != nil {
			for _, acquired := range receivers {
				if cerr := acquired.Close(); cerr != nil {
					log.Warn().Err(cerr).Msg("close receiver")
				}
			}
			return xerrors.Errorf("consumer %d connect to %s: %v: %w", i, c.broker.Name(), err, common_errors.ErrPoolStart)
		}
		receivers = append(receivers, r)
	}
	c.pool = newWorkerPool(ctx, "consumer", c.cfg.Workers)
	for i, r := range receivers {
		id, receiver := i, r
		c.pool.launch(id, func(ctx context.Context) stats.WorkerResult {
			return c.run(ctx, id, receiver)
		})
	}
	c.pool.seal()
	log.Info().Int("workers", c.cfg.Workers).Dur("pollTimeout", c.cfg.PollTimeout).Msg("consumer pool started")
	return nil
}

// run polls until it sees a poison pill or its context is cancelled. An
// empty poll is never a reason to stop.
func (c *ConsumerPool) run(ctx context.Context, id int, receiver transport.Receiver) stats.WorkerResult {
	defer func() {
		if err := receiver.Close(); err != nil {
			log.Warn().Err(err).Int("consumer", id).Msg("close receiver")
		}
	}()
	startTime := time.Now()
	res := stats.WorkerResult{Worker: fmt.Sprintf("consumer-%d", id)}
	finish := func(reason string) stats.WorkerResult {
		res.Elapsed = time.Since(startTime)
		log.Debug().Int("consumer", id).Str("reason", reason).Uint64("consumed", res.Consumed).
			Dur("elapsed", res.Elapsed).Msg("consumer done")
		return res
	}
	for {
		if ctx.Err() != nil {
			return finish("cancelled")
		}
		msg, ok, err := receiver.Receive(ctx, c.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return finish("cancelled")
			}
			log.Warn().Err(err).Int("consumer", id).Msg("receive failed")
			c.backoff(ctx)
			continue
		}
		if !ok {
			continue
		}
		if msg.IsShutdown() {
			return finish("poison pill")
		}
		rec, err := c.decoder.Decode(msg.Payload)
		if err != nil {
			res.DecodeFailed++
			c.metrics.IncDecodeFailed()
			log.Warn().Err(err).Int("consumer", id).Str("payload", debug.HexPayload(msg.Payload, 32)).
				Msg("decode message, dropping")
			continue
		}
		isValid := validation.IsValid(rec)
		q := c.invalid
		if isValid {
			q = c.valid
		} else if e := log.Debug(); e.Enabled() {
			logViolations(e, rec)
		}
		if err := q.Push(ctx, rec); err != nil {
			if common_errors.IsQueueClosedError(err) {
				log.Error().Err(err).Int("consumer", id).Msg("routing queue closed")
			}
			return finish("cancelled")
		}
		res.Consumed++
		if isValid {
			res.Valid++
		} else {
			res.Invalid++
		}
		c.metrics.IncConsumed(isValid)
		c.progress.Tick(1)
	}
}

func (c *ConsumerPool) backoff(ctx context.Context) {
	t := time.NewTimer(c.cfg.PollTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func logViolations(e *zerolog.Event, rec commtypes.Record) {
	arr := zerolog.Arr()
	for _, v := range validation.Violations(rec) {
		arr.Str(v.Field + ": " + v.Message)
	}
	e.Str("record", rec.String()).Array("violations", arr).Msg("invalid record")
}

func (c *ConsumerPool) Workers() int {
	return c.cfg.Workers
}

func (c *ConsumerPool) Done() <-chan struct{} {
	return c.pool.Done()
}

func (c *ConsumerPool) Wait(grace time.Duration) ([]stats.WorkerResult, error) {
	return c.pool.shutdown(grace)
}

func (c *ConsumerPool) abort() []stats.WorkerResult {
	return c.pool.abort()
}
