package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"mq-pipeline-bench/pkg/common_errors"
	"mq-pipeline-bench/pkg/config"
	"mq-pipeline-bench/pkg/pipeline"
	"mq-pipeline-bench/pkg/sink"
	"mq-pipeline-bench/pkg/stats"
	"mq-pipeline-bench/pkg/transport"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

var (
	FLAGS_config string
	FLAGS_outDir string
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := zerolog.ParseLevel(logLevel); err == nil && logLevel != "" {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func main() {
	flag.StringVar(&FLAGS_config, "config", "", "properties file, app.properties in the working directory if present")
	flag.StringVar(&FLAGS_outDir, "out", "", "directory for relative sink files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config app.properties] [-out dir] <messageCount>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	messageCount, err := parseMessageCount(flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("bad arguments")
		flag.Usage()
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, messageCount); err != nil {
		if common_errors.IsStartupError(err) {
			log.Error().Err(err).Msg("startup failed")
		} else {
			log.Error().Err(err).Msg("benchmark aborted")
		}
		stop()
		os.Exit(1)
	}
}

func parseMessageCount(args []string) (int, error) {
	if len(args) != 1 {
		return 0, xerrors.Errorf("expected exactly one argument, got %d: %w", len(args), common_errors.ErrInvalidMessageCount)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, xerrors.Errorf("%q: %w", args[0], common_errors.ErrInvalidMessageCount)
	}
	return n, nil
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if FLAGS_config != "" {
		cfg, err = config.Load(FLAGS_config)
	} else {
		cfg, err = config.LoadDefaultFile()
	}
	if err != nil {
		return nil, err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	return cfg, nil
}

func sinkPath(name string) string {
	if FLAGS_outDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(FLAGS_outDir, name)
}

func run(ctx context.Context, messageCount int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serde, err := cfg.Serde()
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	log.Info().Str("run", runID).Int("messages", messageCount).Str("transport", cfg.TransportKind).
		Str("serde", cfg.SerdeFormat).Int("producers", cfg.ProducerCount).Int("consumers", cfg.ConsumerCount).
		Dur("budget", cfg.GenerationDuration).Msg("starting benchmark")

	var metrics *stats.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = stats.NewMetrics(reg)
		srv := serveMetrics(cfg.MetricsAddr, reg)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	broker, err := transport.NewBroker(ctx, cfg.Transport())
	if err != nil {
		return xerrors.Errorf("connect %s: %v: %w", cfg.TransportKind, err, common_errors.ErrPoolStart)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("close broker")
		}
	}()

	if FLAGS_outDir != "" {
		if err := os.MkdirAll(FLAGS_outDir, 0o755); err != nil {
			return xerrors.Errorf("out dir %s: %v: %w", FLAGS_outDir, err, common_errors.ErrInvalidConfig)
		}
	}
	validPath, invalidPath := sinkPath(cfg.ValidSinkFile), sinkPath(cfg.InvalidSinkFile)
	validSink, err := sink.NewCsvSink(validPath)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, common_errors.ErrInvalidConfig)
	}
	invalidSink, err := sink.NewCsvSink(invalidPath)
	if err != nil {
		_ = validSink.Close()
		return xerrors.Errorf("%v: %w", err, common_errors.ErrInvalidConfig)
	}

	coordinator := pipeline.NewCoordinator(cfg.Pipeline(runID, messageCount), broker, serde, validSink, invalidSink, metrics)
	summary, err := coordinator.Run(ctx)
	if err != nil {
		return err
	}
	if cfg.ArchiveEnabled() {
		archive(ctx, cfg, runID, &summary, validPath, invalidPath)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

// archive failures are reported but do not fail a finished run
func archive(ctx context.Context, cfg *config.Config, runID string, summary *stats.Summary, files ...string) {
	archiver, err := sink.NewMinioArchiver(sink.ArchiveOptions{
		Endpoint:  cfg.ArchiveURL,
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
		Bucket:    cfg.ArchiveBucket,
		Secure:    cfg.ArchiveSecure,
	})
	if err != nil {
		log.Error().Err(err).Msg("archive client")
		return
	}
	body, err := summary.MarshalIndent()
	if err != nil {
		log.Error().Err(err).Msg("encode summary")
		return
	}
	actx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := archiver.Archive(actx, runID, files, body); err != nil {
		log.Error().Err(err).Msg("archive run results")
		return
	}
	log.Info().Str("run", runID).Str("bucket", cfg.ArchiveBucket).Msg("run results archived")
}
