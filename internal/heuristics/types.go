package heuristics

import "time"

// #region stage

// Stage is a lifecycle state of a tacit-knowledge rule. Promotion follows
// the total order candidate → qualified → promoted → active; deprecated is
// reachable from any stage and terminal.
type Stage string

const (
	StageCandidate  Stage = "candidate"
	StageQualified  Stage = "qualified"
	StagePromoted   Stage = "promoted"
	StageActive     Stage = "active"
	StageDeprecated Stage = "deprecated"
)

// #endregion

// #region transition

// Transition is one entry in a record's append-only audit trail.
type Transition struct {
	From   Stage
	To     Stage
	Reason string
	At     time.Time
}

// #endregion

// #region record

// Record is a governed heuristic with its evidence counters, dissent links,
// and full transition history.
type Record struct {
	HeuristicID   string
	RuleText      string
	Owner         string
	CreatedAt     time.Time
	Stage         Stage
	EvidenceCount int
	SuccessRate   float64
	DissentFrom   []string
	TransitionLog []Transition
}

// clone returns a deep copy so callers can never mutate registry state.
func (r *Record) clone() Record {
	out := *r
	out.DissentFrom = append([]string(nil), r.DissentFrom...)
	out.TransitionLog = append([]Transition(nil), r.TransitionLog...)
	return out
}

// #endregion

// #region collision

// Collision records substantial rule-text overlap between two heuristics.
type Collision struct {
	HeuristicID   string
	ConflictsWith string
	OverlapTerms  []string
}

// #endregion

// #region config

// Config holds the evidence thresholds and collision sensitivity.
type Config struct {
	PromoteEvidence int     // evidence count for promoted
	PromoteRate     float64 // success rate for promoted
	QualifyEvidence int     // evidence count for qualified
	QualifyRate     float64 // success rate for qualified
	MinOverlapTerms int     // shared tokens for a collision
}

// DefaultConfig returns the governance policy defaults.
func DefaultConfig() Config {
	return Config{
		PromoteEvidence: 20,
		PromoteRate:     0.90,
		QualifyEvidence: 10,
		QualifyRate:     0.80,
		MinOverlapTerms: 4,
	}
}

// #endregion

// #region snapshot

// Snapshot is a full dump of all records plus the active-id set, for audit.
type Snapshot struct {
	Records   []Record
	ActiveIDs []string
}

// #endregion
