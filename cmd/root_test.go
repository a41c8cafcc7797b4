package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdmsim/wdmsim/sim"
)

// parseFlags builds the run command's flag set and parses args into it.
func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addSimFlags(fs)
	addSessionFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestConfigFromViper_DefaultsMatchDefaultConfig(t *testing.T) {
	v, err := newViper(parseFlags(t), "")
	require.NoError(t, err)

	cfg, err := configFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultConfig(), cfg)
}

func TestConfigFromViper_FlagsOverrideDefaults(t *testing.T) {
	fs := parseFlags(t, "--node-count=4", "--wavelength-mode=wavelength_conversion", "--lambda=2.5", "--step-wavelength")
	v, err := newViper(fs, "")
	require.NoError(t, err)

	cfg, err := configFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NodeCount)
	assert.Equal(t, sim.ModeWavelengthConversion, cfg.WavelengthMode)
	assert.Equal(t, 2.5, cfg.Lambda)
	assert.True(t, cfg.StepWavelength)
}

func TestConfigFromViper_EnvironmentOverride(t *testing.T) {
	// GIVEN WDMSIM_* variables and no flags
	t.Setenv("WDMSIM_NODE_COUNT", "6")
	t.Setenv("WDMSIM_TARGET_COUNT", "1234")

	// WHEN the configuration is resolved
	v, err := newViper(parseFlags(t), "")
	require.NoError(t, err)
	cfg, err := configFromViper(v)

	// THEN the environment wins over flag defaults
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.NodeCount)
	assert.Equal(t, int64(1234), cfg.TargetCount)
}

func TestConfigFromViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wdmsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mu: 0.5\nwavelength-count: 4\n"), 0o644))

	v, err := newViper(parseFlags(t, "--wavelength-count=7"), path)
	require.NoError(t, err)
	cfg, err := configFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Mu)
	// An explicitly set flag beats the file.
	assert.Equal(t, 7, cfg.WavelengthCount)
}

func TestConfigFromViper_MissingConfigFile(t *testing.T) {
	_, err := newViper(parseFlags(t), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigFromViper_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"--wavelength-mode=ring"}},
		{"one node", []string{"--node-count=1"}},
		{"zero target", []string{"--target-count=0"}},
		{"negative lambda", []string{"--lambda=-1"}},
		{"unknown rng", []string{"--rng=pcg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newViper(parseFlags(t, tt.args...), "")
			require.NoError(t, err)
			_, err = configFromViper(v)
			assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
		})
	}
}

func TestSessionOptionsFromViper(t *testing.T) {
	v, err := newViper(parseFlags(t, "--metrics-file=/tmp/m.prom", "--timeout=2s"), "")
	require.NoError(t, err)

	opts := sessionOptionsFromViper(v)
	assert.Equal(t, "/tmp/m.prom", opts.MetricsFile)
	assert.Equal(t, "none", opts.OtelExporter)
	assert.Equal(t, "2s", opts.Timeout.String())
}

func TestRunAndReport_SingleLinkPrintsReference(t *testing.T) {
	// GIVEN a small single-link configuration with debug logs and metrics
	cfg := sim.DefaultConfig()
	cfg.SimulationCount = 2
	cfg.NodeCount = 2
	cfg.WavelengthCount = 2
	cfg.TransientCount = 10
	cfg.TargetCount = 50
	cfg.Debug = true
	metrics := filepath.Join(t.TempDir(), "wdmsim.prom")

	// WHEN it runs
	var stdout, stderr bytes.Buffer
	err := runAndReport(context.Background(), cfg, sessionOptions{MetricsFile: metrics}, &stdout, &stderr)

	// THEN per-replica lines, the average and the Erlang-B reference are printed
	require.NoError(t, err)
	out := stdout.String()
	assert.Contains(t, out, "replica 0")
	assert.Contains(t, out, "replica 1")
	assert.Contains(t, out, "Average Pb over 2 runs")
	assert.Contains(t, out, "Erlang-B reference (c=2, A=5.000)")

	// THEN debug logs are flushed in replica order
	logs := stderr.String()
	first := bytes.Index(stderr.Bytes(), []byte("replica 0 debug log"))
	second := bytes.Index(stderr.Bytes(), []byte("replica 1 debug log"))
	require.GreaterOrEqual(t, first, 0, logs)
	assert.Greater(t, second, first)

	// THEN the metrics file exists
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wdmsim_runs_total")
}

func TestRunAndReport_SweepPrintsOneBlockPerStep(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.SimulationCount = 1
	cfg.NodeCount = 4
	cfg.WavelengthCount = 4
	cfg.TargetCount = 30
	cfg.StepWavelength = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, runAndReport(context.Background(), cfg, sessionOptions{}, &stdout, &stderr))

	for _, header := range []string{"=== W=2 ", "=== W=3 ", "=== W=4 "} {
		assert.Contains(t, stdout.String(), header)
	}
	assert.NotContains(t, stdout.String(), "Erlang-B")
	assert.Zero(t, stderr.Len())
}
