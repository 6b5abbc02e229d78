package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/governance-engine/internal/replay"
)

// #region main

func main() {
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote example fixture to %s\n", *outPath)
}

// #endregion main

// #region export

// run writes a worked example fixture: one ruleset, one passing run, one run
// blocked for a missing required key.
func run(outPath string) error {
	fix := replay.Fixture{
		Description:   "example: goal/steps ruleset with one pass and one block",
		ActiveVersion: 1,
		Rulesets: []replay.FixtureRuleset{
			{Name: "baseline", RequiredKeys: []string{"goal", "steps"}},
		},
		Runs: []replay.FixtureRun{
			{
				RunID:       "run-complete",
				ObjectiveID: "obj-1",
				ArtifactID:  "artifact-1",
				Strategy: map[string]any{
					"goal":  "summarize the quarterly findings",
					"steps": []any{"collect", "draft", "review"},
				},
				Output: map[string]any{"summary": "draft v1"},
			},
			{
				RunID:       "run-missing-steps",
				ObjectiveID: "obj-2",
				ArtifactID:  "artifact-2",
				Strategy: map[string]any{
					"goal": "summarize without a plan",
				},
				Output: map[string]any{"summary": "should never persist"},
			},
		},
		ExpectedResults: []replay.FixtureExpected{
			{RunID: "run-complete", Verdict: "PASS", Persisted: true},
			{RunID: "run-missing-steps", Verdict: "FAIL", Persisted: false},
		},
	}

	data, err := json.MarshalIndent(fix, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion export
