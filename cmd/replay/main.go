package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/governance-engine/internal/config"
	"github.com/danielpatrickdp/governance-engine/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	cfgPath := flag.String("config", "", "optional governance config YAML")
	jsonOut := flag.Bool("json", false, "output summary as JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--config governance.yaml] [--json]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	fix, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	summary, err := replay.Replay(fix, cfg.GateConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "encode summary: %v\n", err)
			os.Exit(1)
		}
	} else {
		printSummary(summary)
	}

	if !summary.Clean() {
		os.Exit(1)
	}
}

// #endregion main

// #region output

func printSummary(s *replay.Summary) {
	if s.Description != "" {
		fmt.Printf("fixture: %s\n", s.Description)
	}
	fmt.Printf("%-24s %-6s %-8s %-10s %-6s %s\n", "RUN", "PASS", "SCORE", "PERSISTED", "DET", "MATCH")
	for _, r := range s.Results {
		fmt.Printf("%-24s %-6s %-8.4f %-10v %-6v %v\n",
			r.RunID, r.Verdict, r.Score, r.Persisted, r.Deterministic, r.Matched)
		if r.Reason != "" {
			fmt.Printf("  %s\n", r.Reason)
		}
	}
	fmt.Printf("\ntotal=%d passed=%d blocked=%d mismatches=%d nondeterministic=%d\n",
		s.TotalRuns, s.Passes, s.Blocked, s.Mismatches, s.Nondeterministic)
}

// #endregion output
