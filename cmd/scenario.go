package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wdmsim/wdmsim/sim"
)

var scenariosPath string

// Scenario is one named configuration in a scenarios file. Fields left out
// inherit the file's defaults section, then sim.DefaultConfig.
type Scenario struct {
	Name       string `yaml:"name"`
	sim.Config `yaml:",inline"`
}

// scenarioFile is the top-level layout of a scenarios file.
type scenarioFile struct {
	Defaults  yaml.Node   `yaml:"defaults"`
	Scenarios []yaml.Node `yaml:"scenarios"`
}

// LoadScenarios parses a scenarios file with strict field checking and
// validates every scenario before returning.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}
	var file scenarioFile
	if err := strictDecode(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenarios %s: %w", path, err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: %s lists no scenarios", sim.ErrInvalidConfiguration, path)
	}

	base := sim.DefaultConfig()
	if !file.Defaults.IsZero() {
		if err := decodeNode(&file.Defaults, &base); err != nil {
			return nil, fmt.Errorf("parse defaults in %s: %w", path, err)
		}
	}

	seen := make(map[string]bool, len(file.Scenarios))
	scenarios := make([]Scenario, 0, len(file.Scenarios))
	for i := range file.Scenarios {
		sc := Scenario{Config: base}
		if err := decodeNode(&file.Scenarios[i], &sc); err != nil {
			return nil, fmt.Errorf("parse scenario %d in %s: %w", i, path, err)
		}
		if sc.Name == "" {
			return nil, fmt.Errorf("%w: scenario %d has no name", sim.ErrInvalidConfiguration, i)
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("%w: duplicate scenario name %q", sim.ErrInvalidConfiguration, sc.Name)
		}
		seen[sc.Name] = true
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// decodeNode re-encodes a node and decodes it strictly into out, keeping
// fields of out the node does not mention.
func decodeNode(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	return strictDecode(data, out)
}

func strictDecode(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

// runScenarios runs every scenario in order inside one session, so the
// metrics file and trace exporter cover the whole file.
func runScenarios(ctx context.Context, scenarios []Scenario, opts sessionOptions, stdout, stderr io.Writer) error {
	s, err := newSession(ctx, opts, stderr)
	if err != nil {
		return err
	}
	var runErr error
	for _, sc := range scenarios {
		logrus.Infof("Scenario %s: %d runs, nodes=%d W=%d mode=%s", sc.Name,
			sc.SimulationCount, sc.NodeCount, sc.WavelengthCount, sc.WavelengthMode)
		startTime := time.Now()
		fmt.Fprintf(stdout, "##### scenario %s #####\n", sc.Name)
		if err := s.report(ctx, sc.Config, stdout, stderr); err != nil {
			runErr = fmt.Errorf("scenario %s failed: %w", sc.Name, err)
			break
		}
		logrus.Infof("Scenario %s complete in %v.", sc.Name, time.Since(startTime))
	}
	if err := s.close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// batchCmd runs every scenario of a file in order.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the named scenarios of a YAML file",
	Run: func(cmd *cobra.Command, args []string) {
		scenarios, err := LoadScenarios(scenariosPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenarios: %v", err)
		}
		v, err := newViper(cmd.Flags(), cfgFile)
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		if err := runScenarios(cmd.Context(), scenarios, sessionOptionsFromViper(v), os.Stdout, os.Stderr); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	batchCmd.Flags().StringVar(&scenariosPath, "scenarios", "", "Path to a scenarios YAML file")
	_ = batchCmd.MarkFlagRequired("scenarios")
	addSessionFlags(batchCmd.Flags())

	rootCmd.AddCommand(batchCmd)
}
