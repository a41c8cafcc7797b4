package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wdmsim/wdmsim/sim"
	"github.com/wdmsim/wdmsim/sim/trace"
)

// envPrefix namespaces environment overrides, e.g. WDMSIM_NODE_COUNT.
const envPrefix = "WDMSIM"

var (
	cfgFile  string // Optional config file; keys match flag names
	logLevel string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "wdmsim",
	Short: "Discrete-event simulator for blocking probability on WDM optical buses",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes one batch of replicated runs, or a wavelength sweep.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate blocking probability for one configuration",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper(cmd.Flags(), cfgFile)
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		cfg, err := configFromViper(v)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		opts := sessionOptionsFromViper(v)

		logrus.Infof("Starting %d runs: nodes=%d W=%d mode=%s lambda=%v mu=%v transient=%d target=%d",
			cfg.SimulationCount, cfg.NodeCount, cfg.WavelengthCount, cfg.WavelengthMode,
			cfg.Lambda, cfg.Mu, cfg.TransientCount, cfg.TargetCount)

		startTime := time.Now()
		if err := runAndReport(cmd.Context(), cfg, opts, os.Stdout, os.Stderr); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// addSimFlags registers every sim.Config flag with its default.
func addSimFlags(fs *pflag.FlagSet) {
	def := sim.DefaultConfig()
	modes := make([]string, 0, 3)
	for _, m := range sim.WavelengthModes() {
		modes = append(modes, string(m))
	}

	fs.Int("simulation-count", def.SimulationCount, "Number of independent replications to average")
	fs.Int("node-count", def.NodeCount, "Number of nodes on the bus (>= 2)")
	fs.Float64("lambda", def.Lambda, "Connection arrival rate")
	fs.Float64("mu", def.Mu, "Connection service rate (1 / mean holding time)")
	fs.Int("wavelength-count", def.WavelengthCount, "Wavelengths per link; the sweep maximum with --step-wavelength")
	fs.String("wavelength-mode", string(def.WavelengthMode), "Wavelength mode ("+strings.Join(modes, ", ")+")")
	fs.Int64("transient-count", def.TransientCount, "Warm-up arrivals excluded from statistics")
	fs.Int64("target-count", def.TargetCount, "Arrivals sampled after warm-up")
	fs.Bool("step-wavelength", def.StepWavelength, "Sweep the wavelength count from 2 to --wavelength-count")
	fs.Int64("seed", def.Seed, "Master seed; replica seeds are derived from it")
	fs.String("rng", string(def.RNG), "Random source (math-rand, mrg32k3a)")
	fs.Bool("check-invariants", def.CheckInvariants, "Verify trunk occupancy after every event")
	fs.Bool("debug", def.Debug, "Print each run's event log to stderr after the batch")
	fs.String("trace-level", string(def.TraceLevel), "Routing decision tracing (none, decisions)")
	fs.Bool("trace-warmup", def.TraceWarmup, "Also trace warm-up arrivals")
}

// addSessionFlags registers observability and join flags.
func addSessionFlags(fs *pflag.FlagSet) {
	fs.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	fs.String("otel-exporter", "none", "OpenTelemetry span exporter (none, stdout)")
	fs.Duration("timeout", 0, "Give up waiting for a batch after this long (0 waits forever)")
}

// newViper layers flags, WDMSIM_* environment variables and an optional
// config file into one viper instance.
func newViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	}
	return v, nil
}

// configFromViper builds and validates a sim.Config.
func configFromViper(v *viper.Viper) (sim.Config, error) {
	mode, err := sim.ParseWavelengthMode(v.GetString("wavelength-mode"))
	if err != nil {
		return sim.Config{}, err
	}
	cfg := sim.Config{
		SimulationCount: v.GetInt("simulation-count"),
		NodeCount:       v.GetInt("node-count"),
		Lambda:          v.GetFloat64("lambda"),
		Mu:              v.GetFloat64("mu"),
		WavelengthCount: v.GetInt("wavelength-count"),
		WavelengthMode:  mode,
		TransientCount:  v.GetInt64("transient-count"),
		TargetCount:     v.GetInt64("target-count"),
		StepWavelength:  v.GetBool("step-wavelength"),
		Seed:            v.GetInt64("seed"),
		RNG:             sim.RNGKind(v.GetString("rng")),
		CheckInvariants: v.GetBool("check-invariants"),
		Debug:           v.GetBool("debug"),
		TraceLevel:      trace.TraceLevel(v.GetString("trace-level")),
		TraceWarmup:     v.GetBool("trace-warmup"),
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

func sessionOptionsFromViper(v *viper.Viper) sessionOptions {
	return sessionOptions{
		MetricsFile:  v.GetString("metrics-file"),
		OtelExporter: v.GetString("otel-exporter"),
		Timeout:      v.GetDuration("timeout"),
	}
}

// runAndReport executes cfg in its own session and prints every batch to
// stdout. Debug logs go to stderr in replica order.
func runAndReport(ctx context.Context, cfg sim.Config, opts sessionOptions, stdout, stderr io.Writer) error {
	s, err := newSession(ctx, opts, stderr)
	if err != nil {
		return err
	}
	runErr := s.report(ctx, cfg, stdout, stderr)
	if err := s.close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml; keys match flag names)")

	addSimFlags(runCmd.Flags())
	addSessionFlags(runCmd.Flags())

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
