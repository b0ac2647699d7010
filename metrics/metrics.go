// Package metrics exports sink delivery statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/sink"
)

const namespace = "pipelog"

// DefaultPath is the path the exporter serves metrics on
const DefaultPath = "/metrics"

type statsProvider interface {
	Stats() sink.Snapshot
}

type lengther interface {
	Len() int
}

// Collector exports sink delivery counters. Sinks are read on every scrape,
// so the collector follows the pipeline through Initialize and Dispose.
type Collector struct {
	sinks func() []sink.Sink

	events   *prometheus.Desc
	failures *prometheus.Desc
	flushes  *prometheus.Desc
	buffered *prometheus.Desc
}

// NewCollector creates a collector over the sinks returned by sinks,
// typically (*pipeline.Pipeline).Sinks.
func NewCollector(sinks func() []sink.Sink) *Collector {
	labels := []string{"sink", "index"}
	return &Collector{
		sinks: sinks,
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sink", "events_total"),
			"Events delivered by a sink, by level.",
			append(labels, "level"), nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sink", "failures_total"),
			"Events a sink failed to deliver.",
			labels, nil,
		),
		flushes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sink", "flushes_total"),
			"Buffer flushes performed by a sink.",
			labels, nil,
		),
		buffered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sink", "buffered_events"),
			"Events held by a batching sink awaiting flush.",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.failures
	ch <- c.flushes
	ch <- c.buffered
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.sinks == nil {
		return
	}
	for i, s := range c.sinks() {
		kind, index := s.Kind(), strconv.Itoa(i)

		// Delivery counts come from the innermost sink that keeps stats;
		// flushes and buffer length from the outermost decorator.
		var outer, inner statsProvider
		for cur := s; cur != nil; {
			if sp, ok := cur.(statsProvider); ok {
				if outer == nil {
					outer = sp
				}
				inner = sp
			}
			w, ok := cur.(sink.Wrapper)
			if !ok {
				break
			}
			cur = w.Unwrap()
		}

		if l, ok := s.(lengther); ok {
			if _, wraps := s.(sink.Wrapper); wraps {
				ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(l.Len()), kind, index)
			}
		}
		if outer == nil {
			continue
		}

		flushes := outer.Stats().Flushes
		snap := inner.Stats()
		if inner != outer {
			flushes += snap.Flushes
		}
		ch <- prometheus.MustNewConstMetric(c.flushes, prometheus.CounterValue, float64(flushes), kind, index)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(snap.Failed), kind, index)
		for lvl := core.DebugLevel; lvl <= core.ExceptionLevel; lvl++ {
			ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue,
				float64(snap.Processed[lvl]), kind, index, strings.ToLower(lvl.String()))
		}
	}
}

// Server serves a registry over HTTP.
type Server struct {
	addr string
	srv  *http.Server
	log  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server exposing reg on addr at DefaultPath.
func NewServer(addr string, reg *prometheus.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{
		addr: addr,
		log:  log,
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("metrics: server already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	s.log.Info("metrics server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server and waits for the serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}
