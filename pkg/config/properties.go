package config

import (
	"strings"
	"time"

	"mq-pipeline-bench/pkg/common_errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// aliases maps a key to the older names it is also read from. The first
// name present wins.
var aliases = map[string][]string{
	"transport.url":         {"activemq.url"},
	"transport.user":        {"activemq.user"},
	"transport.password":    {"activemq.pwd"},
	"transport.destination": {"activemq.queue"},
}

func lookup(sec *ini.Section, name string) (*ini.Key, bool) {
	for _, n := range append([]string{name}, aliases[name]...) {
		if sec.HasKey(n) {
			return sec.Key(n), true
		}
	}
	return nil, false
}

func (c *Config) applyProperties(sec *ini.Section) error {
	str := func(name string, dst *string) {
		if k, ok := lookup(sec, name); ok {
			*dst = strings.TrimSpace(k.String())
		}
	}
	var firstErr error
	record := func(name string, err error) {
		if err != nil && firstErr == nil {
			firstErr = xerrors.Errorf("%s: %v: %w", name, err, common_errors.ErrInvalidConfig)
		}
	}
	num := func(name string, dst *int) {
		if k, ok := lookup(sec, name); ok {
			v, err := k.Int()
			record(name, err)
			if err == nil {
				*dst = v
			}
		}
	}
	millis := func(name string, dst *time.Duration) {
		if k, ok := lookup(sec, name); ok {
			v, err := k.Int64()
			record(name, err)
			if err == nil {
				*dst = time.Duration(v) * time.Millisecond
			}
		}
	}

	str("transport.kind", &c.TransportKind)
	str("transport.url", &c.TransportURL)
	str("transport.user", &c.TransportUser)
	str("transport.password", &c.TransportPassword)
	str("transport.destination", &c.Destination)
	str("serde.format", &c.SerdeFormat)
	millis("generation.duration", &c.GenerationDuration)
	num("producer.count", &c.ProducerCount)
	num("consumer.count", &c.ConsumerCount)
	if k, ok := lookup(sec, "producer.rate"); ok {
		v, err := k.Float64()
		record("producer.rate", err)
		if err == nil {
			c.ProducerRate = v
		}
	}
	millis("producer.grace", &c.ProducerGrace)
	millis("consumer.grace", &c.ConsumerGrace)
	millis("writer.grace", &c.WriterGrace)
	millis("consumer.poll.timeout", &c.ConsumerPollTimeout)
	millis("writer.poll.interval", &c.WriterPollInterval)
	num("queue.capacity.per.consumer", &c.QueueCapacityPerConsumer)
	num("transport.mem.capacity", &c.MemCapacity)
	str("sink.valid.file", &c.ValidSinkFile)
	str("sink.invalid.file", &c.InvalidSinkFile)
	str("archive.url", &c.ArchiveURL)
	str("archive.access.key", &c.ArchiveAccessKey)
	str("archive.secret.key", &c.ArchiveSecretKey)
	str("archive.bucket", &c.ArchiveBucket)
	if k, ok := lookup(sec, "archive.secure"); ok {
		v, err := k.Bool()
		record("archive.secure", err)
		if err == nil {
			c.ArchiveSecure = v
		}
	}
	str("metrics.addr", &c.MetricsAddr)
	str("log.level", &c.LogLevel)

	for _, k := range sec.Keys() {
		if !known(k.Name()) {
			log.Warn().Str("key", k.Name()).Msg("unknown configuration key ignored")
		}
	}
	return firstErr
}

func known(name string) bool {
	switch name {
	case "transport.kind", "transport.url", "transport.user", "transport.password", "transport.destination",
		"serde.format", "generation.duration", "producer.count", "consumer.count", "producer.rate",
		"producer.grace", "consumer.grace", "writer.grace", "consumer.poll.timeout", "writer.poll.interval",
		"queue.capacity.per.consumer", "transport.mem.capacity", "sink.valid.file", "sink.invalid.file",
		"archive.url", "archive.access.key", "archive.secret.key", "archive.bucket", "archive.secure",
		"metrics.addr", "log.level":
		return true
	}
	for _, olds := range aliases {
		for _, o := range olds {
			if o == name {
				return true
			}
		}
	}
	return false
}
