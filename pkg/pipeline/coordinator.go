package pipeline

import (
	"context"
	"time"

	"mq-pipeline-bench/pkg/bounded_queue"
	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/sink"
	"mq-pipeline-bench/pkg/stats"
	"mq-pipeline-bench/pkg/transport"
	"mq-pipeline-bench/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const DEFAULT_QUEUE_CAPACITY_PER_CONSUMER = 3000

type State int

const (
	Idle State = iota
	ProducersRunning
	ProducersWindDown
	ConsumersRunning
	ConsumersWindDown
	WritersDraining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ProducersRunning:
		return "ProducersRunning"
	case ProducersWindDown:
		return "ProducersWindDown"
	case ConsumersRunning:
		return "ConsumersRunning"
	case ConsumersWindDown:
		return "ConsumersWindDown"
	case WritersDraining:
		return "WritersDraining"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// canTransition allows the forward chain plus Idle -> Terminated for a run
// that failed to start.
func canTransition(from, to State) bool {
	if from == Idle && to == Terminated {
		return true
	}
	return from != Terminated && to == from+1
}

type Config struct {
	RunID                    string
	Producer                 ProducerConfig
	Consumer                 ConsumerConfig
	Writer                   WriterConfig
	QueueCapacityPerConsumer int
	ProducerGrace            time.Duration
	ConsumerGrace            time.Duration
	WriterGrace              time.Duration
}

func (c *Config) Validate() error {
	if c.Producer.MessageCount <= 0 {
		return xerrors.Errorf("%d: %w", c.Producer.MessageCount, common_errors.ErrInvalidMessageCount)
	}
	if c.Producer.Workers <= 0 || c.Consumer.Workers <= 0 {
		return xerrors.Errorf("producer workers %d, consumer workers %d: %w",
			c.Producer.Workers, c.Consumer.Workers, common_errors.ErrInvalidConfig)
	}
	if c.QueueCapacityPerConsumer < 0 {
		return xerrors.Errorf("queue capacity per consumer %d: %w", c.QueueCapacityPerConsumer, common_errors.ErrInvalidConfig)
	}
	return nil
}

// Coordinator owns one benchmark run. It starts writers, consumers and
// producers, then stops them strictly in that reverse order: producers are
// joined before any poison pill is sent, consumers are joined before the
// writers are told that upstream is done.
type Coordinator struct {
	cfg         Config
	broker      transport.Broker
	serde       commtypes.SerdeG[commtypes.Record]
	validSink   sink.Sink
	invalidSink sink.Sink
	metrics     *stats.Metrics

	mu      syncutils.Mutex
	state   State
	history []State
}

func NewCoordinator(cfg Config, broker transport.Broker, serde commtypes.SerdeG[commtypes.Record],
	validSink, invalidSink sink.Sink, metrics *stats.Metrics,
) *Coordinator {
	if cfg.QueueCapacityPerConsumer == 0 {
		cfg.QueueCapacityPerConsumer = DEFAULT_QUEUE_CAPACITY_PER_CONSUMER
	}
	return &Coordinator{
		cfg:         cfg,
		broker:      broker,
		serde:       serde,
		validSink:   validSink,
		invalidSink: invalidSink,
		metrics:     metrics,
		state:       Idle,
		history:     []State{Idle},
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History is every state the coordinator has been in, oldest first.
func (c *Coordinator) History() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := make([]State, len(c.history))
	copy(h, c.history)
	return h
}

func (c *Coordinator) transition(to State) error {
	c.mu.Lock()
	from := c.state
	if !canTransition(from, to) {
		c.mu.Unlock()
		return xerrors.Errorf("%v -> %v: %w", from, to, common_errors.ErrInvalidStateTransition)
	}
	c.state = to
	c.history = append(c.history, to)
	c.mu.Unlock()
	c.metrics.SetState(int(to))
	log.Info().Str("from", from.String()).Str("to", to.String()).Msg("coordinator state")
	return nil
}

// Run executes the whole pipeline once. Shutdown timeouts are logged and the
// run carries on; only a pool that cannot start aborts it.
func (c *Coordinator) Run(ctx context.Context) (stats.Summary, error) {
	if s := c.State(); s != Idle {
		return stats.Summary{}, xerrors.Errorf("run from %v: %w", s, common_errors.ErrInvalidStateTransition)
	}
	if err := c.cfg.Validate(); err != nil {
		_ = c.transition(Terminated)
		return stats.Summary{}, err
	}
	capacity := c.cfg.Consumer.Workers * c.cfg.QueueCapacityPerConsumer
	valid := bounded_queue.NewBoundedQueue[commtypes.Record](capacity)
	invalid := bounded_queue.NewBoundedQueue[commtypes.Record](capacity)
	upstreamDone := make(chan struct{})

	writers := NewWriterPool(valid, invalid, c.validSink, c.invalidSink, upstreamDone, c.cfg.Writer, c.metrics)
	writers.Start(ctx)

	consumers := NewConsumerPool(c.broker, c.serde, valid, invalid, c.cfg.Consumer, c.metrics)
	if err := consumers.Start(ctx); err != nil {
		close(upstreamDone)
		writers.abort()
		_ = c.transition(Terminated)
		return stats.Summary{}, err
	}

	producers := NewProducerPool(c.broker, c.serde, c.cfg.Producer, c.metrics)
	if err := producers.Start(ctx); err != nil {
		consumers.abort()
		close(upstreamDone)
		writers.abort()
		_ = c.transition(Terminated)
		return stats.Summary{}, err
	}
	if err := c.transition(ProducersRunning); err != nil {
		return stats.Summary{}, err
	}
	startTs := time.Now()

	producerResults, err := producers.Wait(c.cfg.ProducerGrace)
	if err != nil {
		log.Warn().Err(err).Msg("producers forced to stop")
	}
	productionTime := time.Since(startTs)
	c.metrics.ObservePhase(stats.PhaseProduction, productionTime)
	if err := c.transition(ProducersWindDown); err != nil {
		return stats.Summary{}, err
	}

	pills := c.broadcastPoisonPill(ctx, consumers.Workers())
	if err := c.transition(ConsumersRunning); err != nil {
		return stats.Summary{}, err
	}

	consumerStart := time.Now()
	consumerResults, err := consumers.Wait(c.cfg.ConsumerGrace)
	if err != nil {
		log.Warn().Err(err).Msg("consumers forced to stop")
	}
	consumptionTime := time.Since(consumerStart)
	c.metrics.ObservePhase(stats.PhaseConsumption, consumptionTime)
	if err := c.transition(ConsumersWindDown); err != nil {
		return stats.Summary{}, err
	}

	close(upstreamDone)
	if err := c.transition(WritersDraining); err != nil {
		return stats.Summary{}, err
	}
	writerStart := time.Now()
	writerResults, err := writers.Wait(c.cfg.WriterGrace)
	if err != nil {
		log.Warn().Err(err).Msg("writers forced to stop")
	}
	writingTime := time.Since(writerStart)
	c.metrics.ObservePhase(stats.PhaseWriting, writingTime)

	summary := stats.NewSummary(c.cfg.RunID, uint64(c.cfg.Producer.MessageCount),
		producerResults, consumerResults, writerResults, pills, stats.PhaseTimes{
			Production:  productionTime,
			Consumption: consumptionTime,
			Writing:     writingTime,
		})
	if err := c.transition(Terminated); err != nil {
		return summary, err
	}
	summary.Report()
	// the pools stop early on cancellation, so the summary is partial
	if err := ctx.Err(); err != nil {
		return summary, xerrors.Errorf("run interrupted: %w", err)
	}
	return summary, nil
}

// broadcastPoisonPill sends one pill per consumer through a dedicated sender.
// A failure is logged; consumers that get no pill are stopped by the
// consumer grace period instead.
func (c *Coordinator) broadcastPoisonPill(ctx context.Context, consumers int) int {
	sender, err := c.broker.NewSender(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire sender for poison pills")
		return 0
	}
	defer func() {
		if err := sender.Close(); err != nil {
			log.Warn().Err(err).Msg("close poison pill sender")
		}
	}()
	sent, err := transport.BroadcastPoisonPill(ctx, sender, consumers)
	if err != nil {
		log.Error().Err(err).Int("sent", sent).Int("consumers", consumers).Msg("poison pill broadcast incomplete")
	} else {
		log.Info().Int("pills", sent).Msg("poison pills sent")
	}
	return sent
}
