package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/wdmsim/wdmsim/internal/observability"
	"github.com/wdmsim/wdmsim/sim"
	"github.com/wdmsim/wdmsim/sim/replication"
)

// sessionOptions are the CLI concerns around a simulation, not part of it.
type sessionOptions struct {
	MetricsFile  string
	OtelExporter string
	Timeout      time.Duration
}

// session owns the controller and the observability it reports into.
type session struct {
	controller  *replication.Controller
	collector   *observability.Collector
	shutdown    func(context.Context) error
	metricsFile string
}

func newSession(ctx context.Context, opts sessionOptions, traceOut io.Writer) (*session, error) {
	s := &session{metricsFile: opts.MetricsFile}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     opts.OtelExporter != "" && opts.OtelExporter != "none",
		ServiceName: "wdmsim",
		Exporter:    opts.OtelExporter,
		Writer:      traceOut,
	}, logrus.StandardLogger())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	s.shutdown = shutdown

	if opts.MetricsFile != "" {
		s.collector, err = observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	s.controller = replication.NewController(
		replication.WithCollector(s.collector),
		replication.WithTimeout(opts.Timeout),
		replication.WithTracer(observability.Tracer()),
	)
	return s, nil
}

// report executes cfg on the session controller and prints every batch.
func (s *session) report(ctx context.Context, cfg sim.Config, stdout, stderr io.Writer) error {
	results, err := s.controller.Execute(ctx, cfg)
	for _, b := range results {
		printBatch(stdout, b)
		flushLogs(stderr, b)
	}
	return err
}

// close flushes spans and writes the metrics file.
func (s *session) close(ctx context.Context) error {
	observability.ShutdownWithTimeout(ctx, s.shutdown, logrus.StandardLogger())
	if s.metricsFile == "" {
		return nil
	}
	if err := s.collector.WriteTextfile(s.metricsFile); err != nil {
		return err
	}
	logrus.Infof("Metrics written to %s", s.metricsFile)
	return nil
}
