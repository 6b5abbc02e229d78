package replay

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a governance replay fixture.
type Fixture struct {
	Description     string            `json:"description"`
	Rulesets        []FixtureRuleset  `json:"rulesets"`
	ActiveVersion   int               `json:"active_version"`
	Runs            []FixtureRun      `json:"runs"`
	ExpectedResults []FixtureExpected `json:"expected_results"`
}

// FixtureRuleset declares one ruleset; versions are allocated in file order.
type FixtureRuleset struct {
	Name         string   `json:"name"`
	RequiredKeys []string `json:"required_keys"`
}

// FixtureRun is one planner run to push through judge and gate.
type FixtureRun struct {
	RunID        string         `json:"run_id"`
	ObjectiveID  string         `json:"objective_id"`
	ArtifactID   string         `json:"artifact_id"`
	HeuristicIDs []string       `json:"heuristic_ids"`
	Strategy     map[string]any `json:"strategy"`
	Output       map[string]any `json:"output"`
}

// FixtureExpected captures the expected outcome per run.
type FixtureExpected struct {
	RunID     string `json:"run_id"`
	Verdict   string `json:"verdict"`
	Persisted bool   `json:"persisted"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.ActiveVersion < 1 || f.ActiveVersion > len(f.Rulesets) {
		return nil, fmt.Errorf("fixture %s: active_version %d out of range", path, f.ActiveVersion)
	}
	return &f, nil
}

// #endregion fixture-loader
