package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisBroker backs the destination with a Redis list: RPUSH to send,
// BLPOP to receive. Each list element is delivered to exactly one receiver,
// which gives the point-to-point queue semantics the poison pill protocol
// relies on.
type RedisBroker struct {
	opts  *redis.Options
	queue string
}

var _ = Broker(&RedisBroker{})

func redisOptions(o Options) (*redis.Options, error) {
	var ropts *redis.Options
	if strings.HasPrefix(o.URL, "redis://") || strings.HasPrefix(o.URL, "rediss://") {
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %v", err)
		}
		ropts = parsed
	} else {
		addr := o.URL
		if addr == "" {
			addr = "127.0.0.1:6379"
		}
		ropts = &redis.Options{
			Addr: addr,
			DB:   0,
		}
	}
	if o.User != "" {
		ropts.Username = o.User
	}
	if o.Password != "" {
		ropts.Password = o.Password
	}
	ropts.DialTimeout = o.DialTimeout
	return ropts, nil
}

func NewRedisBroker(o Options) (*RedisBroker, error) {
	ropts, err := redisOptions(o)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{opts: ropts, queue: o.Destination}, nil
}

func (b *RedisBroker) Name() string {
	return fmt.Sprintf("redis://%s/%s", b.opts.Addr, b.queue)
}

func (b *RedisBroker) connect(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(b.opts)
	pingCtx, cancel := context.WithTimeout(ctx, b.opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %v", b.opts.Addr, err)
	}
	return rdb, nil
}

func (b *RedisBroker) NewSender(ctx context.Context) (Sender, error) {
	rdb, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("queue", b.queue).Msg("redis sender connected")
	return &redisSender{rdb: rdb, queue: b.queue}, nil
}

func (b *RedisBroker) NewReceiver(ctx context.Context) (Receiver, error) {
	rdb, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("queue", b.queue).Msg("redis receiver connected")
	return &redisReceiver{rdb: rdb, queue: b.queue}, nil
}

func (b *RedisBroker) Close() error {
	return nil
}

type redisSender struct {
	rdb   *redis.Client
	queue string
}

func (s *redisSender) Send(ctx context.Context, payload []byte) error {
	if err := checkPayload(payload); err != nil {
		return err
	}
	return s.rdb.RPush(ctx, s.queue, payload).Err()
}

func (s *redisSender) Close() error {
	return s.rdb.Close()
}

type redisReceiver struct {
	rdb   *redis.Client
	queue string
}

// blpopTimeout converts a poll interval to a BLPOP timeout. BLPOP counts in
// whole seconds and treats 0 as "block forever", so anything shorter than a
// second waits one second.
func blpopTimeout(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d.Truncate(time.Second)
}

func (r *redisReceiver) Receive(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	kv, err := r.rdb.BLPop(ctx, blpopTimeout(timeout), r.queue).Result()
	if err == redis.Nil {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	// BLPOP replies with [key, value]
	if len(kv) != 2 {
		return Message{}, false, fmt.Errorf("unexpected BLPOP reply of %d elements", len(kv))
	}
	return Classify([]byte(kv[1])), true, nil
}

func (r *redisReceiver) Close() error {
	return r.rdb.Close()
}
