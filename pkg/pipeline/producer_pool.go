package pipeline

import (
	"context"
	"fmt"
	"time"

	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/generator"
	"mq-pipeline-bench/pkg/stats"
	"mq-pipeline-bench/pkg/transport"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"golang.org/x/xerrors"
)

type RecordGenerator interface {
	Generate() commtypes.Record
}

type ProducerConfig struct {
	Workers      int
	MessageCount int
	// Budget stops every worker once this much time has passed since Start.
	// Zero disables it.
	Budget time.Duration
	// Rate caps each worker at this many messages per second; 0 is unlimited.
	Rate float64
	// Seed of worker i is Seed+i; zero picks a time based seed.
	Seed         int64
	NewGenerator func(seed int64) RecordGenerator
}

// SplitCount divides total over workers. Every worker gets total/workers
// and the last one also takes the remainder.
func SplitCount(total int, workers int) ([]int, error) {
	if workers <= 0 {
		return nil, xerrors.Errorf("producer workers %d: %w", workers, common_errors.ErrInvalidConfig)
	}
	if total < 0 {
		return nil, xerrors.Errorf("message count %d: %w", total, common_errors.ErrInvalidMessageCount)
	}
	share := total / workers
	counts := make([]int, workers)
	for i := range counts {
		counts[i] = share
	}
	counts[workers-1] += total - share*workers
	return counts, nil
}

type ProducerPool struct {
	cfg      ProducerConfig
	broker   transport.Broker
	encoder  commtypes.EncoderG[commtypes.Record]
	metrics  *stats.Metrics
	progress *stats.ConcurrentThroughputCounter
	pool     *workerPool
	startTs  time.Time
}

func NewProducerPool(broker transport.Broker, encoder commtypes.EncoderG[commtypes.Record],
	cfg ProducerConfig, metrics *stats.Metrics,
) *ProducerPool {
	if cfg.NewGenerator == nil {
		cfg.NewGenerator = func(seed int64) RecordGenerator {
			return generator.NewRecordGenerator(seed)
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &ProducerPool{
		cfg:      cfg,
		broker:   broker,
		encoder:  encoder,
		metrics:  metrics,
		progress: stats.NewConcurrentThroughputCounter("produced", stats.DEFAULT_PROGRESS_INTERVAL),
	}
}

// Start acquires a sender for every worker and only then launches them. If
// any sender cannot be acquired the ones already held are closed and no
// worker runs.
func (p *ProducerPool) Start(ctx context.Context) error {
	counts, err := SplitCount(p.cfg.MessageCount, p.cfg.Workers)
	if err != nil {
		return xerrors.Errorf("producer pool: %v: %w", err, common_errors.ErrPoolStart)
	}
	senders := make([]transport.Sender, 0, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		s, err := p.broker.NewSender(ctx)
		if err != nil {
			for _, acquired := range senders {
				if cerr := acquired.Close(); cerr != nil {
					log.Warn().Err(cerr).Msg("close sender")
				}
			}
			return xerrors.Errorf("producer %d connect to %s: %v: %w", i, p.broker.Name(), err, common_errors.ErrPoolStart)
		}
		senders = append(senders, s)
	}
	p.pool = newWorkerPool(ctx, "producer", p.cfg.Workers)
	p.startTs = time.Now()
	for i, s := range senders {
		id, sender, assigned := i, s, counts[i]
		gen := p.cfg.NewGenerator(p.cfg.Seed + int64(id))
		var limiter *rate.Limiter
		if p.cfg.Rate > 0 {
			limiter = rate.NewLimiter(rate.Limit(p.cfg.Rate), 1)
		}
		p.pool.launch(id, func(ctx context.Context) stats.WorkerResult {
			return p.run(ctx, id, sender, assigned, gen, limiter)
		})
	}
	p.pool.seal()
	log.Info().Int("workers", p.cfg.Workers).Ints("assigned", counts).Dur("budget", p.cfg.Budget).
		Msg("producer pool started")
	return nil
}

func (p *ProducerPool) budgetExhausted() bool {
	return p.cfg.Budget > 0 && time.Since(p.startTs) >= p.cfg.Budget
}

func (p *ProducerPool) run(ctx context.Context, id int, sender transport.Sender, assigned int,
	gen RecordGenerator, limiter *rate.Limiter,
) stats.WorkerResult {
	defer func() {
		if err := sender.Close(); err != nil {
			log.Warn().Err(err).Int("producer", id).Msg("close sender")
		}
	}()
	startTime := time.Now()
	res := stats.WorkerResult{Worker: fmt.Sprintf("producer-%d", id)}
	for i := 0; i < assigned; i++ {
		if ctx.Err() != nil {
			break
		}
		if p.budgetExhausted() {
			log.Debug().Int("producer", id).Int("sent", i).Int("assigned", assigned).Msg("duration budget exhausted")
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		r := gen.Generate()
		res.Generated++
		p.metrics.IncGenerated()
		payload, err := p.encoder.Encode(r)
		if err != nil {
			log.Warn().Err(err).Int("producer", id).Msg("encode record, dropping")
			res.SendFailed++
			p.metrics.IncSendFailed()
			continue
		}
		if err := sender.Send(ctx, payload); err != nil {
			res.SendFailed++
			p.metrics.IncSendFailed()
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Int("producer", id).Msg("send message, dropping")
			continue
		}
		res.Produced++
		p.metrics.IncProduced()
		p.progress.Tick(1)
	}
	res.Elapsed = time.Since(startTime)
	log.Debug().Int("producer", id).Uint64("produced", res.Produced).Dur("elapsed", res.Elapsed).Msg("producer done")
	return res
}

func (p *ProducerPool) Workers() int {
	return p.cfg.Workers
}

func (p *ProducerPool) Done() <-chan struct{} {
	return p.pool.Done()
}

// Wait is the two phase shutdown: the budget plus grace for the workers to
// return, then cancellation. Without a budget the workers are waited for
// until they have sent their share.
func (p *ProducerPool) Wait(grace time.Duration) ([]stats.WorkerResult, error) {
	if p.cfg.Budget <= 0 {
		return p.pool.shutdown(0)
	}
	wait := p.cfg.Budget - time.Since(p.startTs) + grace
	if wait <= 0 {
		wait = time.Millisecond
	}
	return p.pool.shutdown(wait)
}

func (p *ProducerPool) abort() []stats.WorkerResult {
	return p.pool.abort()
}
