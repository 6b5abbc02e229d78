package judge

import "time"

// #region verdict

// Verdict is the PASS/FAIL outcome of deterministic evaluation. It gates
// downstream persistence.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// #endregion

// #region ruleset

// Ruleset is a versioned set of required strategy keys. Versions are
// monotonically increasing; exactly one version is active at a time.
type Ruleset struct {
	Version      int
	Name         string
	RequiredKeys []string
}

// #endregion

// #region planner-run

// PlannerRun is an immutable planning output awaiting judgment.
type PlannerRun struct {
	RunID        string
	ObjectiveID  string
	ArtifactID   string
	HeuristicIDs []string
	Strategy     map[string]any
	CreatedAt    time.Time
}

// #endregion

// #region judge-run

// JudgeRun is the deterministic judgment of a PlannerRun under the ruleset
// active at judge time. Never mutated after creation.
type JudgeRun struct {
	RunID        string
	PlannerRunID string
	ArtifactID   string
	Verdict      Verdict
	Score        float64 // [0,1]; a FAIL never scores >= 0.5
	Reasons      []string
	Remediation  []string
	CreatedAt    time.Time
}

// #endregion
