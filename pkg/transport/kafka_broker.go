package transport

import (
	"context"
	"fmt"
	"time"

	"mq-pipeline-bench/pkg/common_errors"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const kafkaGroupID = "mq-pipeline-bench"

// KafkaBroker maps the destination onto a topic with one partition per
// consumer worker. Senders spread messages round-robin over the partitions,
// so a burst of n poison pills from a fresh sender lands one per partition
// and therefore one per consumer of the group.
type KafkaBroker struct {
	opts       Options
	partitions int32
}

var _ = Broker(&KafkaBroker{})

func NewKafkaBroker(ctx context.Context, o Options) (*KafkaBroker, error) {
	if o.URL == "" {
		o.URL = "127.0.0.1:9092"
	}
	partitions := o.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	b := &KafkaBroker{opts: o, partitions: int32(partitions)}
	if err := b.createTopic(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *KafkaBroker) baseConfig() kafka.ConfigMap {
	conf := kafka.ConfigMap{"bootstrap.servers": b.opts.URL}
	if b.opts.User != "" {
		conf["security.protocol"] = "SASL_PLAINTEXT"
		conf["sasl.mechanisms"] = "PLAIN"
		conf["sasl.username"] = b.opts.User
		conf["sasl.password"] = b.opts.Password
	}
	return conf
}

func (b *KafkaBroker) createTopic(ctx context.Context) error {
	conf := b.baseConfig()
	adminClient, err := kafka.NewAdminClient(&conf)
	if err != nil {
		return fmt.Errorf("kafka admin client: %v", err)
	}
	defer adminClient.Close()
	ctx, cancel := context.WithTimeout(ctx, b.opts.DialTimeout)
	defer cancel()
	result, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             b.opts.Destination,
			NumPartitions:     int(b.partitions),
			ReplicationFactor: 1,
			Config: map[string]string{
				"min.insync.replicas": "1",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %v", b.opts.Destination, err)
	}
	for _, res := range result {
		switch res.Error.Code() {
		case kafka.ErrTopicAlreadyExists:
			log.Warn().Msgf("topic %s already exists: %v", res.Topic, res.Error)
			md, err := adminClient.GetMetadata(&res.Topic, false, b.timeoutMs())
			if err != nil {
				return fmt.Errorf("kafka metadata for %s: %v", res.Topic, err)
			}
			tm, ok := md.Topics[res.Topic]
			if !ok {
				return fmt.Errorf("kafka metadata for %s: topic missing from reply", res.Topic)
			}
			if err := checkPartitions(res.Topic, len(tm.Partitions), int(b.partitions)); err != nil {
				return err
			}
		case kafka.ErrNoError:
			log.Info().Msgf("created topic %s with %d partitions", res.Topic, b.partitions)
		default:
			return fmt.Errorf("failed to create topic %s: %v", res.Topic, res.Error)
		}
	}
	return nil
}

// checkPartitions requires a reused topic to have exactly one partition per
// consumer. Pills are spread round-robin over the partitions, so any other
// layout can leave a consumer without its pill.
func checkPartitions(topic string, have, want int) error {
	if have != want {
		return xerrors.Errorf("topic %s has %d partitions, need %d: %w",
			topic, have, want, common_errors.ErrInvalidConfig)
	}
	return nil
}

func (b *KafkaBroker) Name() string {
	return fmt.Sprintf("kafka://%s/%s", b.opts.URL, b.opts.Destination)
}

func (b *KafkaBroker) timeoutMs() int {
	return int(b.opts.DialTimeout / time.Millisecond)
}

func (b *KafkaBroker) NewSender(ctx context.Context) (Sender, error) {
	conf := b.baseConfig()
	conf["acks"] = "1"
	conf["linger.ms"] = 0
	conf["go.delivery.reports"] = true
	p, err := kafka.NewProducer(&conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}
	topic := b.opts.Destination
	if _, err := p.GetMetadata(&topic, false, b.timeoutMs()); err != nil {
		p.Close()
		return nil, fmt.Errorf("kafka metadata for %s: %v", topic, err)
	}
	return &kafkaSender{
		p:          p,
		topic:      topic,
		partitions: b.partitions,
		delivery:   make(chan kafka.Event, 1),
	}, nil
}

func (b *KafkaBroker) NewReceiver(ctx context.Context) (Receiver, error) {
	conf := b.baseConfig()
	conf["group.id"] = kafkaGroupID
	conf["auto.offset.reset"] = "earliest"
	conf["enable.auto.commit"] = true
	c, err := kafka.NewConsumer(&conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %v", err)
	}
	topic := b.opts.Destination
	if _, err := c.GetMetadata(&topic, false, b.timeoutMs()); err != nil {
		c.Close()
		return nil, fmt.Errorf("kafka metadata for %s: %v", topic, err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("fail to subscribe to topic %s: %v", topic, err)
	}
	return &kafkaReceiver{c: c}, nil
}

func (b *KafkaBroker) Close() error {
	return nil
}

type kafkaSender struct {
	p          *kafka.Producer
	topic      string
	partitions int32
	next       int32
	delivery   chan kafka.Event
}

// Send produces synchronously: it returns once the broker acknowledged the
// message, so a nil error means the message is counted as produced.
func (s *kafkaSender) Send(ctx context.Context, payload []byte) error {
	if err := checkPayload(payload); err != nil {
		return err
	}
	parNum := s.next % s.partitions
	s.next++
	err := s.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: parNum},
		Value:          payload,
	}, s.delivery)
	if err != nil {
		return err
	}
	select {
	case e := <-s.delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %v", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *kafkaSender) Close() error {
	remaining := s.p.Flush(30 * 1000)
	if remaining != 0 {
		log.Warn().Int("remaining", remaining).Str("topic", s.topic).Msg("kafka producer closed with undelivered messages")
	}
	s.p.Close()
	return nil
}

type kafkaReceiver struct {
	c *kafka.Consumer
}

func (r *kafkaReceiver) Receive(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, false, err
	}
	m, err := r.c.ReadMessage(timeout)
	if err != nil {
		if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
			return Message{}, false, nil
		}
		return Message{}, false, err
	}
	return Classify(m.Value), true, nil
}

func (r *kafkaReceiver) Close() error {
	return r.c.Close()
}
