// Package config reads the benchmark settings from a Java style properties
// file and lets MQBENCH_* environment variables override single keys.
package config

import (
	"os"
	"strings"
	"time"

	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/pipeline"
	"mq-pipeline-bench/pkg/transport"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

const (
	DefaultFile        = "app.properties"
	envPrefix          = "mqbench"
	defaultDestination = "mq-bench"
)

type Config struct {
	TransportKind     string
	TransportURL      string
	TransportUser     string
	TransportPassword string
	Destination       string
	SerdeFormat       string

	GenerationDuration time.Duration
	ProducerCount      int
	ConsumerCount      int
	ProducerRate       float64
	ProducerGrace      time.Duration
	ConsumerGrace      time.Duration
	WriterGrace        time.Duration

	ConsumerPollTimeout      time.Duration
	WriterPollInterval       time.Duration
	QueueCapacityPerConsumer int
	MemCapacity              int

	ValidSinkFile   string
	InvalidSinkFile string

	ArchiveURL       string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveSecure    bool

	MetricsAddr string
	LogLevel    string
}

func Default() *Config {
	return &Config{
		TransportKind:            string(transport.KindMem),
		Destination:              defaultDestination,
		SerdeFormat:              "json",
		GenerationDuration:       0,
		ProducerCount:            2,
		ConsumerCount:            3,
		ProducerGrace:            5 * time.Second,
		ConsumerGrace:            60 * time.Second,
		WriterGrace:              60 * time.Second,
		ConsumerPollTimeout:      pipeline.DEFAULT_POLL_TIMEOUT,
		WriterPollInterval:       pipeline.DEFAULT_WRITER_POLL_INTERVAL,
		QueueCapacityPerConsumer: pipeline.DEFAULT_QUEUE_CAPACITY_PER_CONSUMER,
		MemCapacity:              transport.DefaultMemCapacity,
		ValidSinkFile:            "valid.csv",
		InvalidSinkFile:          "invalid.csv",
		ArchiveBucket:            "mq-bench",
		LogLevel:                 "info",
	}
}

// Load applies, in order, the defaults, the properties file at path (skipped
// when path is empty) and the environment, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
		if err != nil {
			return nil, xerrors.Errorf("load %s: %v: %w", path, err, common_errors.ErrInvalidConfig)
		}
		if err := cfg.applyProperties(f.Section(ini.DefaultSection)); err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Msg("configuration loaded")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefaultFile loads DefaultFile when it exists and falls back to
// defaults plus environment otherwise.
func LoadDefaultFile() (*Config, error) {
	if _, err := os.Stat(DefaultFile); err != nil {
		log.Info().Str("file", DefaultFile).Msg("no properties file, using defaults")
		return Load("")
	}
	return Load(DefaultFile)
}

func (c *Config) Validate() error {
	if _, err := transport.ParseKind(c.TransportKind); err != nil {
		return xerrors.Errorf("transport.kind: %v: %w", err, common_errors.ErrInvalidConfig)
	}
	if _, err := commtypes.StringToSerdeFormat(c.SerdeFormat); err != nil {
		return xerrors.Errorf("serde.format %q: %w", c.SerdeFormat, err)
	}
	if strings.TrimSpace(c.Destination) == "" {
		return invalid("transport.destination", "must not be empty")
	}
	if c.ProducerCount <= 0 {
		return invalid("producer.count", "must be positive")
	}
	if c.ConsumerCount <= 0 {
		return invalid("consumer.count", "must be positive")
	}
	if c.ProducerRate < 0 {
		return invalid("producer.rate", "must not be negative")
	}
	if c.GenerationDuration < 0 || c.ProducerGrace < 0 || c.ConsumerGrace < 0 || c.WriterGrace < 0 {
		return invalid("generation.duration/*.grace", "must not be negative")
	}
	if c.QueueCapacityPerConsumer <= 0 {
		return invalid("queue.capacity.per.consumer", "must be positive")
	}
	if c.ValidSinkFile == "" || c.InvalidSinkFile == "" {
		return invalid("sink.valid.file/sink.invalid.file", "must not be empty")
	}
	if c.ValidSinkFile == c.InvalidSinkFile {
		return invalid("sink.invalid.file", "must differ from sink.valid.file")
	}
	if c.ArchiveURL != "" && (c.ArchiveAccessKey == "" || c.ArchiveSecretKey == "") {
		return invalid("archive.access.key/archive.secret.key", "required when archive.url is set")
	}
	return nil
}

func invalid(key string, reason string) error {
	return xerrors.Errorf("%s %s: %w", key, reason, common_errors.ErrInvalidConfig)
}

func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveURL != ""
}

func (c *Config) Transport() transport.Options {
	kind, _ := transport.ParseKind(c.TransportKind)
	return transport.Options{
		Kind:        kind,
		URL:         c.TransportURL,
		User:        c.TransportUser,
		Password:    c.TransportPassword,
		Destination: c.Destination,
		Partitions:  c.ConsumerCount,
		MemCapacity: c.MemCapacity,
	}
}

func (c *Config) Serde() (commtypes.SerdeG[commtypes.Record], error) {
	format, err := commtypes.StringToSerdeFormat(c.SerdeFormat)
	if err != nil {
		return nil, err
	}
	return commtypes.GetRecordSerdeG(format)
}

func (c *Config) Pipeline(runID string, messageCount int) pipeline.Config {
	return pipeline.Config{
		RunID: runID,
		Producer: pipeline.ProducerConfig{
			Workers:      c.ProducerCount,
			MessageCount: messageCount,
			Budget:       c.GenerationDuration,
			Rate:         c.ProducerRate,
		},
		Consumer: pipeline.ConsumerConfig{
			Workers:     c.ConsumerCount,
			PollTimeout: c.ConsumerPollTimeout,
		},
		Writer: pipeline.WriterConfig{
			PollInterval: c.WriterPollInterval,
		},
		QueueCapacityPerConsumer: c.QueueCapacityPerConsumer,
		ProducerGrace:            c.ProducerGrace,
		ConsumerGrace:            c.ConsumerGrace,
		WriterGrace:              c.WriterGrace,
	}
}

// envOverrides only holds the variables that are actually set.
type envOverrides struct {
	TransportKind            *string  `envconfig:"TRANSPORT_KIND"`
	TransportURL             *string  `envconfig:"TRANSPORT_URL"`
	TransportUser            *string  `envconfig:"TRANSPORT_USER"`
	TransportPassword        *string  `envconfig:"TRANSPORT_PASSWORD"`
	Destination              *string  `envconfig:"TRANSPORT_DESTINATION"`
	SerdeFormat              *string  `envconfig:"SERDE_FORMAT"`
	GenerationDurationMs     *int64   `envconfig:"GENERATION_DURATION"`
	ProducerCount            *int     `envconfig:"PRODUCER_COUNT"`
	ConsumerCount            *int     `envconfig:"CONSUMER_COUNT"`
	ProducerRate             *float64 `envconfig:"PRODUCER_RATE"`
	ProducerGraceMs          *int64   `envconfig:"PRODUCER_GRACE"`
	ConsumerGraceMs          *int64   `envconfig:"CONSUMER_GRACE"`
	WriterGraceMs            *int64   `envconfig:"WRITER_GRACE"`
	ConsumerPollTimeoutMs    *int64   `envconfig:"CONSUMER_POLL_TIMEOUT"`
	WriterPollIntervalMs     *int64   `envconfig:"WRITER_POLL_INTERVAL"`
	QueueCapacityPerConsumer *int     `envconfig:"QUEUE_CAPACITY_PER_CONSUMER"`
	MemCapacity              *int     `envconfig:"TRANSPORT_MEM_CAPACITY"`
	ValidSinkFile            *string  `envconfig:"SINK_VALID_FILE"`
	InvalidSinkFile          *string  `envconfig:"SINK_INVALID_FILE"`
	ArchiveURL               *string  `envconfig:"ARCHIVE_URL"`
	ArchiveAccessKey         *string  `envconfig:"ARCHIVE_ACCESS_KEY"`
	ArchiveSecretKey         *string  `envconfig:"ARCHIVE_SECRET_KEY"`
	ArchiveBucket            *string  `envconfig:"ARCHIVE_BUCKET"`
	ArchiveSecure            *bool    `envconfig:"ARCHIVE_SECURE"`
	MetricsAddr              *string  `envconfig:"METRICS_ADDR"`
	LogLevel                 *string  `envconfig:"LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := envconfig.Process(envPrefix, &o); err != nil {
		return xerrors.Errorf("environment: %v: %w", err, common_errors.ErrInvalidConfig)
	}
	setString(&c.TransportKind, o.TransportKind)
	setString(&c.TransportURL, o.TransportURL)
	setString(&c.TransportUser, o.TransportUser)
	setString(&c.TransportPassword, o.TransportPassword)
	setString(&c.Destination, o.Destination)
	setString(&c.SerdeFormat, o.SerdeFormat)
	setMillis(&c.GenerationDuration, o.GenerationDurationMs)
	setInt(&c.ProducerCount, o.ProducerCount)
	setInt(&c.ConsumerCount, o.ConsumerCount)
	if o.ProducerRate != nil {
		c.ProducerRate = *o.ProducerRate
	}
	setMillis(&c.ProducerGrace, o.ProducerGraceMs)
	setMillis(&c.ConsumerGrace, o.ConsumerGraceMs)
	setMillis(&c.WriterGrace, o.WriterGraceMs)
	setMillis(&c.ConsumerPollTimeout, o.ConsumerPollTimeoutMs)
	setMillis(&c.WriterPollInterval, o.WriterPollIntervalMs)
	setInt(&c.QueueCapacityPerConsumer, o.QueueCapacityPerConsumer)
	setInt(&c.MemCapacity, o.MemCapacity)
	setString(&c.ValidSinkFile, o.ValidSinkFile)
	setString(&c.InvalidSinkFile, o.InvalidSinkFile)
	setString(&c.ArchiveURL, o.ArchiveURL)
	setString(&c.ArchiveAccessKey, o.ArchiveAccessKey)
	setString(&c.ArchiveSecretKey, o.ArchiveSecretKey)
	setString(&c.ArchiveBucket, o.ArchiveBucket)
	if o.ArchiveSecure != nil {
		c.ArchiveSecure = *o.ArchiveSecure
	}
	setString(&c.MetricsAddr, o.MetricsAddr)
	setString(&c.LogLevel, o.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *time.Duration, v *int64) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}
