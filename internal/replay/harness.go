package replay

import (
	"errors"

	"github.com/danielpatrickdp/governance-engine/internal/judge"
	"github.com/danielpatrickdp/governance-engine/internal/persist"
)

// #region types

// Result captures the outcome of replaying one planner run through the
// judge and the persistence gate.
type Result struct {
	RunID         string
	Verdict       judge.Verdict
	Score         float64
	Persisted     bool
	Deterministic bool // shadow re-judgment produced identical score and verdict
	Matched       bool // outcome agreed with the fixture's expectation
	Reason        string
}

// Summary aggregates a replay run.
type Summary struct {
	Description      string
	TotalRuns        int
	Passes           int
	Blocked          int
	Mismatches       int
	Nondeterministic int
	Results          []Result
}

// #endregion types

// #region replay

// Replay pushes every fixture run through judge → persistence gate,
// entirely in-memory. Each run is additionally judged a second time under a
// shadow planner run carrying the same strategy; any divergence in score or
// verdict is flagged as nondeterminism.
func Replay(fix *Fixture, gateConfig persist.GateConfig) (*Summary, error) {
	core := judge.NewCore()
	gate := persist.NewGate(gateConfig)

	for _, rs := range fix.Rulesets {
		core.CreateRuleset(rs.Name, rs.RequiredKeys)
	}
	if err := core.ActivateRuleset(fix.ActiveVersion); err != nil {
		return nil, err
	}

	expected := make(map[string]FixtureExpected, len(fix.ExpectedResults))
	for _, e := range fix.ExpectedResults {
		expected[e.RunID] = e
	}

	summary := &Summary{Description: fix.Description, TotalRuns: len(fix.Runs)}

	for _, fr := range fix.Runs {
		run := core.CreatePlan(fr.RunID, fr.ObjectiveID, fr.ArtifactID, fr.HeuristicIDs, fr.Strategy)
		jr, err := core.JudgePlan(run.RunID)
		if err != nil {
			return nil, err
		}

		// Shadow judgment: same strategy content under a distinct run id
		// must score identically.
		shadow := core.CreatePlan(fr.RunID+"::shadow", fr.ObjectiveID, fr.ArtifactID, fr.HeuristicIDs, fr.Strategy)
		sjr, err := core.JudgePlan(shadow.RunID)
		if err != nil {
			return nil, err
		}
		deterministic := sjr.Score == jr.Score && sjr.Verdict == jr.Verdict

		res := Result{
			RunID:         fr.RunID,
			Verdict:       jr.Verdict,
			Score:         jr.Score,
			Deterministic: deterministic,
		}

		_, err = gate.PersistPlannerOutput(run, jr, fr.Output)
		switch {
		case err == nil:
			res.Persisted = true
			summary.Passes++
		case errors.Is(err, persist.ErrPersistenceBlocked):
			if b, ok := gate.Blocked(run.RunID); ok {
				res.Reason = b.Reason
			}
			summary.Blocked++
		default:
			return nil, err
		}

		if e, ok := expected[fr.RunID]; ok {
			res.Matched = string(jr.Verdict) == e.Verdict && res.Persisted == e.Persisted
		} else {
			res.Matched = true
		}
		if !res.Matched {
			summary.Mismatches++
		}
		if !deterministic {
			summary.Nondeterministic++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary, nil
}

// Clean reports whether the replay produced no mismatches and no
// nondeterministic judgments.
func (s *Summary) Clean() bool {
	return s.Mismatches == 0 && s.Nondeterministic == 0
}

// #endregion replay
