// Package testutil provides shared test infrastructure for the simulator.
// It holds the Erlang-B reference dataset and assertion helpers used across
// sim/ and sim/replication/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ReferenceDataset represents the structure of testdata/erlang_reference.json.
type ReferenceDataset struct {
	Tests []ReferenceCase `json:"tests"`
}

// ReferenceCase is a single-link scenario whose blocking probability is
// known in closed form. NodeCount is always 2.
type ReferenceCase struct {
	Name            string  `json:"name"`
	Mode            string  `json:"mode"`
	Lambda          float64 `json:"lambda"`
	Mu              float64 `json:"mu"`
	WavelengthCount int     `json:"wavelength_count"`
	TransientCount  int64   `json:"transient_count"`
	TargetCount     int64   `json:"target_count"`
	Seed            int64   `json:"seed"`

	// ErlangB is B(WavelengthCount, Lambda/Mu).
	ErlangB float64 `json:"erlang_b"`
	// Tolerance is the accepted absolute gap between one run's Pb and ErlangB.
	Tolerance float64 `json:"tolerance"`
}

// LoadReferenceDataset loads the reference dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadReferenceDataset(t *testing.T) *ReferenceDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "erlang_reference.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read reference dataset: %v", err)
	}

	var dataset ReferenceDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse reference dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("reference dataset is empty")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
