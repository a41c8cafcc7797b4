// Package replication runs independent simulation replicas concurrently and
// averages their blocking estimates.
//
// Every replica owns its Simulator, so no mutable state is shared between
// goroutines. Each worker pushes exactly one RunResult into a buffered
// channel; the controller joins all workers, drains the channel and orders
// results by replica index before aggregating.
package replication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wdmsim/wdmsim/internal/observability"
	"github.com/wdmsim/wdmsim/sim"
	simtrace "github.com/wdmsim/wdmsim/sim/trace"
)

// ErrJoinTimeout is returned when replicas do not finish within the
// controller's timeout. Unfinished replicas keep running in the background.
var ErrJoinTimeout = errors.New("timed out waiting for replicas")

// RunResult is what one replica reports back.
type RunResult struct {
	Index   int
	Key     sim.SimulationKey // derived seed; zero for mrg32k3a streams
	Stats   sim.RunStatistics
	Log     []byte // debug log, empty unless Config.Debug
	Trace   *simtrace.TraceSummary
	Elapsed time.Duration
	Err     error
}

// BatchResult aggregates one batch of replicas sharing a configuration.
type BatchResult struct {
	ID              uuid.UUID
	Config          sim.Config
	WavelengthCount int
	Runs            []RunResult // ordered by Index
	Summary         Summary
}

// Failed returns the runs that ended with an error.
func (b *BatchResult) Failed() []RunResult {
	var failed []RunResult
	for _, r := range b.Runs {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

type runFunc func(idx int, cfg sim.Config, streams sim.Streams) (*sim.Simulator, sim.RunStatistics, error)

// Controller launches batches of replicas.
type Controller struct {
	collector *observability.Collector
	tracer    trace.Tracer
	timeout   time.Duration
	log       logrus.FieldLogger

	run runFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithCollector records per-run and per-batch metrics.
func WithCollector(c *observability.Collector) Option {
	return func(ctl *Controller) { ctl.collector = c }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(ctl *Controller) { ctl.tracer = t }
}

// WithTimeout bounds how long RunBatch waits for its replicas. Zero waits
// forever.
func WithTimeout(d time.Duration) Option {
	return func(ctl *Controller) { ctl.timeout = d }
}

// WithLogger sets the logger used for batch-level messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// NewController creates a Controller. Without options it records no
// metrics, uses the global tracer and waits for every replica.
func NewController(opts ...Option) *Controller {
	ctl := &Controller{
		tracer: observability.Tracer(),
		log:    logrus.StandardLogger(),
		run:    runSimulation,
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// Execute runs a single batch, or a wavelength sweep when
// cfg.StepWavelength is set.
func (ctl *Controller) Execute(ctx context.Context, cfg sim.Config) ([]*BatchResult, error) {
	if cfg.StepWavelength {
		return ctl.Sweep(ctx, cfg)
	}
	res, err := ctl.RunBatch(ctx, cfg)
	if res == nil {
		return nil, err
	}
	return []*BatchResult{res}, err
}

// Sweep runs one batch per wavelength count from min(2, max) up to
// cfg.WavelengthCount. It stops at the first batch that cannot start and
// returns the batches completed so far.
func (ctl *Controller) Sweep(ctx context.Context, cfg sim.Config) ([]*BatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, span := ctl.tracer.Start(ctx, "wdmsim.sweep", trace.WithAttributes(
		attribute.Int("wdmsim.wavelengths.max", cfg.WavelengthCount),
	))
	defer span.End()

	var (
		results []*BatchResult
		errs    []error
	)
	for w := min(2, cfg.WavelengthCount); w <= cfg.WavelengthCount; w++ {
		step := cfg
		step.WavelengthCount = w
		res, err := ctl.RunBatch(ctx, step)
		if res == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, fmt.Errorf("sweep step W=%d: %w", w, err)
		}
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep step W=%d: %w", w, err))
		}
	}
	return results, errors.Join(errs...)
}

// RunBatch validates cfg, runs cfg.SimulationCount replicas concurrently and
// returns their aggregate. Runs that fail are reported in Runs and joined
// into the returned error; the batch result is still returned. A nil result
// means no replica was started or the join timed out.
func (ctl *Controller) RunBatch(ctx context.Context, cfg sim.Config) (*BatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	batch := &BatchResult{
		ID:              uuid.New(),
		Config:          cfg,
		WavelengthCount: cfg.WavelengthCount,
	}
	ctx, span := ctl.tracer.Start(ctx, "wdmsim.batch", trace.WithAttributes(
		attribute.String("wdmsim.batch.id", batch.ID.String()),
		attribute.String("wdmsim.mode", string(cfg.WavelengthMode)),
		attribute.Int("wdmsim.wavelengths", cfg.WavelengthCount),
		attribute.Int("wdmsim.replicas", cfg.SimulationCount),
	))
	defer span.End()

	// Streams are allocated here, before any goroutine starts: rngstream
	// hands out substreams from package-level state.
	streams, keys := ctl.allocateStreams(batch.ID, cfg)

	results := make(chan RunResult, cfg.SimulationCount)
	var wg sync.WaitGroup
	for i := 0; i < cfg.SimulationCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results <- ctl.runReplica(ctx, cfg, idx, keys[idx], streams[idx])
		}(i)
	}

	if err := ctl.join(&wg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	close(results)

	batch.Runs = make([]RunResult, 0, cfg.SimulationCount)
	for r := range results {
		batch.Runs = append(batch.Runs, r)
	}
	slices.SortFunc(batch.Runs, func(a, b RunResult) int { return a.Index - b.Index })

	pbs := make([]float64, 0, len(batch.Runs))
	var errs []error
	for _, r := range batch.Runs {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		pbs = append(pbs, r.Stats.Pb)
	}
	batch.Summary = Summarize(pbs)
	ctl.collector.SetBatchMean(string(cfg.WavelengthMode), cfg.WavelengthCount, batch.Summary.MeanPb)

	span.SetAttributes(attribute.Float64("wdmsim.pb.mean", batch.Summary.MeanPb))
	ctl.log.WithFields(logrus.Fields{
		"batch":       batch.ID,
		"wavelengths": cfg.WavelengthCount,
		"failed":      len(errs),
	}).Debugf("batch complete: %s", batch.Summary)

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replica failure")
		return batch, err
	}
	return batch, nil
}

func (ctl *Controller) allocateStreams(batchID uuid.UUID, cfg sim.Config) ([]sim.Streams, []sim.SimulationKey) {
	streams := make([]sim.Streams, cfg.SimulationCount)
	keys := make([]sim.SimulationKey, cfg.SimulationCount)
	master := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	for i := range streams {
		if cfg.RNG == sim.RNGMRG32k3a {
			streams[i] = sim.NewMRGStreams(fmt.Sprintf("%s/%s", batchID, sim.SubsystemReplica(i)))
			continue
		}
		keys[i] = master.ReplicaKey(i)
		streams[i] = sim.NewSeededStreams(keys[i])
	}
	return streams, keys
}

// join waits for every worker, or until the timeout elapses.
func (ctl *Controller) join(wg *sync.WaitGroup) error {
	if ctl.timeout <= 0 {
		wg.Wait()
		return nil
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(ctl.timeout):
		return fmt.Errorf("%w after %v", ErrJoinTimeout, ctl.timeout)
	}
}

func (ctl *Controller) runReplica(ctx context.Context, cfg sim.Config, idx int, key sim.SimulationKey, streams sim.Streams) (res RunResult) {
	_, span := ctl.tracer.Start(ctx, "wdmsim.run", trace.WithAttributes(
		attribute.Int("wdmsim.replica", idx),
	))
	defer span.End()

	res = RunResult{Index: idx, Key: key}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("replica %d: %w: panic: %v", idx, sim.ErrInvalidState, p)
		}
		res.Elapsed = time.Since(start)
		ctl.collector.ObserveRun(string(cfg.WavelengthMode), res.Stats.Sampled, res.Stats.Blocked, res.Stats.Pb, res.Elapsed, res.Err)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return
		}
		span.SetAttributes(
			attribute.Int64("wdmsim.sampled", res.Stats.Sampled),
			attribute.Int64("wdmsim.blocked", res.Stats.Blocked),
			attribute.Float64("wdmsim.pb", res.Stats.Pb),
		)
	}()

	s, stats, err := ctl.run(idx, cfg, streams)
	res.Stats = stats
	if s != nil {
		var buf bytes.Buffer
		if ferr := s.FlushLog(&buf); ferr == nil && buf.Len() > 0 {
			res.Log = buf.Bytes()
		}
		if s.Trace.Enabled() {
			res.Trace = simtrace.Summarize(s.Trace)
		}
	}
	if err != nil {
		res.Err = fmt.Errorf("replica %d: %w", idx, err)
	}
	return res
}

func runSimulation(_ int, cfg sim.Config, streams sim.Streams) (*sim.Simulator, sim.RunStatistics, error) {
	s, err := sim.NewSimulator(cfg, streams)
	if err != nil {
		return nil, sim.RunStatistics{}, err
	}
	stats, err := s.Run()
	return s, stats, err
}
