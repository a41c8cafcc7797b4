package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles Prometheus metrics for simulation batches. A nil
// *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	RunsTotal           *prometheus.CounterVec
	ArrivalsTotal       *prometheus.CounterVec
	BlockedTotal        *prometheus.CounterVec
	BlockingProbability *prometheus.HistogramVec
	RunDuration         *prometheus.HistogramVec
	BatchMeanBlocking   *prometheus.GaugeVec
}

// NewCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wdmsim_runs_total",
		Help: "Completed simulation runs, labeled by wavelength mode and outcome.",
	}, []string{"mode", "status"}), "wdmsim_runs_total")
	if err != nil {
		return nil, err
	}
	arrivals, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wdmsim_sampled_arrivals_total",
		Help: "Arrivals counted after warm-up across all runs.",
	}, []string{"mode"}), "wdmsim_sampled_arrivals_total")
	if err != nil {
		return nil, err
	}
	blocked, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wdmsim_blocked_arrivals_total",
		Help: "Sampled arrivals that could not be routed.",
	}, []string{"mode"}), "wdmsim_blocked_arrivals_total")
	if err != nil {
		return nil, err
	}
	pb, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wdmsim_run_blocking_probability",
		Help:    "Per-run blocking probability estimate.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1},
	}, []string{"mode"}), "wdmsim_run_blocking_probability")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wdmsim_run_duration_seconds",
		Help:    "Wall-clock duration of a single run in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"mode"}), "wdmsim_run_duration_seconds")
	if err != nil {
		return nil, err
	}
	mean, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wdmsim_batch_mean_blocking_probability",
		Help: "Mean blocking probability of the latest batch per mode and wavelength count.",
	}, []string{"mode", "wavelengths"}), "wdmsim_batch_mean_blocking_probability")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		RunsTotal:           runs,
		ArrivalsTotal:       arrivals,
		BlockedTotal:        blocked,
		BlockingProbability: pb,
		RunDuration:         durations,
		BatchMeanBlocking:   mean,
	}, nil
}

// ObserveRun records one finished run. Failed runs only bump the failure
// counter.
func (c *Collector) ObserveRun(mode string, sampled, blocked int64, pb float64, elapsed time.Duration, runErr error) {
	if c == nil {
		return
	}
	if runErr != nil {
		c.RunsTotal.WithLabelValues(mode, "failed").Inc()
		return
	}
	c.RunsTotal.WithLabelValues(mode, "ok").Inc()
	c.ArrivalsTotal.WithLabelValues(mode).Add(float64(sampled))
	c.BlockedTotal.WithLabelValues(mode).Add(float64(blocked))
	c.BlockingProbability.WithLabelValues(mode).Observe(pb)
	c.RunDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// SetBatchMean publishes the averaged blocking probability of a batch.
func (c *Collector) SetBatchMean(mode string, wavelengths int, mean float64) {
	if c == nil {
		return
	}
	c.BatchMeanBlocking.WithLabelValues(mode, strconv.Itoa(wavelengths)).Set(mean)
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// register adds col to reg, reusing an already registered collector of the
// same type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
