// Package testutil provides shared test helpers for Trypillia Go tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Scenario represents a test scenario loaded from a scenario.json file. The
// program file referenced by File lives next to the scenario file.
type Scenario struct {
	File   string         `json:"file"`
	Expect ExpectedResult `json:"expect"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	Stdout         string   `json:"stdout"`
	StderrContains []string `json:"stderrContains,omitempty"`
	RuntimeError   bool     `json:"runtimeError,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	return dirs, nil
}

// ReadProgram reads the scenario's program file.
func ReadProgram(scenarioDir string, s *Scenario) (string, error) {
	source, err := os.ReadFile(filepath.Join(scenarioDir, s.File))
	if err != nil {
		return "", err
	}
	return string(source), nil
}
