package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/internal/diag"
	"github.com/philipp01105/pipelog/logger"
	"github.com/philipp01105/pipelog/metrics"
	"github.com/philipp01105/pipelog/pipeline"
	"github.com/philipp01105/pipelog/sink"
)

type runOptions struct {
	duration    time.Duration
	producers   int
	interval    time.Duration
	filePath    string
	compress    bool
	backends    []string
	quiet       bool
	metricsAddr string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a pipeline with concurrent producers",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := ctx.settings()
			if err != nil {
				return err
			}
			if opts.producers <= 0 {
				return errors.New("--producers must be positive")
			}
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), settings, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.duration, "duration", 2*time.Second, "How long producers run")
	cmd.Flags().IntVar(&opts.producers, "producers", 4, "Number of concurrent producers")
	cmd.Flags().DurationVar(&opts.interval, "interval", 20*time.Millisecond, "Delay between events per producer")
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Also write JSON events to this file")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "Gzip rotated log files")
	cmd.Flags().StringSliceVar(&opts.backends, "backend", nil, "Also write events through backend loggers on stderr (zap, zerolog, logrus, charm)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not write events to the console")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus sink metrics on this address while running")
	return cmd
}

func runPipeline(ctx context.Context, out io.Writer, settings *config.Settings, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []sink.Sink
	if !opts.quiet {
		sinks = append(sinks, sink.NewConsole(sink.ConsoleConfig{Writer: out}))
	}
	if opts.filePath != "" {
		f, err := sink.NewFile(sink.FileConfig{
			Filename:   opts.filePath,
			MaxSize:    10 << 20,
			MaxBackups: 3,
			Compress:   opts.compress,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, f)
	}
	for _, name := range opts.backends {
		s, err := newBackendSink(name)
		if err != nil {
			for _, built := range sinks {
				err = multierr.Append(err, built.Close())
			}
			return err
		}
		sinks = append(sinks, s)
	}

	p := pipeline.New()
	p.Initialize(ctx, sinks, config.Static(*settings))
	if p.State() != pipeline.Initialized {
		return errors.New("pipeline failed to initialize, see diagnostics")
	}
	if host, err := os.Hostname(); err == nil {
		p.Tags().Set("host", host)
	}

	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			metrics.NewCollector(p.Sinks),
			collectors.NewGoCollector(),
		)
		srv := metrics.NewServer(opts.metricsAddr, reg, diag.New())
		if err := srv.Start(); err != nil {
			_ = p.Dispose()
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log := p.DefaultLogger()
	log.Info("producers starting",
		logger.Int("producers", opts.producers),
		logger.Duration("duration", opts.duration),
	)

	runCtx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < opts.producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			produce(runCtx, p.CreateLogger("Worker-"+strconv.Itoa(id)), id, opts.interval)
		}(i)
	}
	wg.Wait()

	log.Info("producers finished")
	disposeErr := p.Dispose()

	fmt.Fprintln(out, statsTable(sinks))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return disposeErr
}

// newBackendSink builds a sink over a third-party logger writing to stderr.
func newBackendSink(name string) (sink.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "zap":
		zl, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build zap logger: %w", err)
		}
		return sink.NewZap(zl), nil
	case "zerolog":
		return sink.NewZerolog(zerolog.New(os.Stderr).With().Timestamp().Logger()), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.DebugLevel)
		return sink.NewLogrus(l), nil
	case "charm":
		return sink.NewCharm(nil), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// produce logs a repeating mix of levels until ctx is done.
func produce(ctx context.Context, log *logger.Logger, id int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch {
		case seq%50 == 49:
			log.Exception(fmt.Errorf("worker %d: simulated failure at %d", id, seq))
		case seq%25 == 24:
			log.Error("retry scheduled",
				logger.Err(fmt.Errorf("worker %d: upstream timeout", id)),
				logger.Uint64("attempt", uint64(seq/25)),
			)
		case seq%10 == 9:
			log.Warning("slow operation", logger.Int("seq", seq), logger.Duration("took", 3*interval))
		case seq%2 == 0:
			log.Debug("tick", logger.Int("seq", seq))
		default:
			log.Info("processed item", logger.Int("seq", seq), logger.Int("worker", id))
		}
	}
}

type statsProvider interface {
	Stats() sink.Snapshot
}

func statsTable(sinks []sink.Sink) string {
	headers := []string{"Sink"}
	levels := []core.Level{core.DebugLevel, core.InfoLevel, core.WarningLevel, core.ErrorLevel, core.ExceptionLevel}
	for _, lvl := range levels {
		headers = append(headers, lvl.String())
	}
	headers = append(headers, "Failed", "Flushes")

	var rows [][]string
	for _, s := range sinks {
		sp, ok := s.(statsProvider)
		if !ok {
			continue
		}
		snap := sp.Stats()
		row := []string{s.Kind()}
		for _, lvl := range levels {
			row = append(row, strconv.FormatUint(snap.Processed[lvl], 10))
		}
		row = append(row, strconv.FormatUint(snap.Failed, 10), strconv.FormatUint(snap.Flushes, 10))
		rows = append(rows, row)
	}

	aligns := make([]columnAlignment, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = alignRight
	}
	return renderTable(headers, rows, aligns)
}
