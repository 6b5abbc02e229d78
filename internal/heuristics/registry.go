package heuristics

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// #region errors
var (
	// ErrNotFound marks a lookup of an unregistered heuristic.
	ErrNotFound = errors.New("heuristic not found")

	// ErrInvalidTransition marks a promotion attempted from an ineligible
	// stage.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// #endregion errors

// #region registry-struct

// Registry is the lifecycle state machine for tacit-knowledge rules. It is
// an explicit, injected store; registration order is retained so listings
// and collision scans are deterministic.
type Registry struct {
	mu      sync.Mutex
	config  Config
	records map[string]*Record
	order   []string
	active  map[string]bool
}

// NewRegistry creates an empty heuristic registry.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:  config,
		records: make(map[string]*Record),
		active:  make(map[string]bool),
	}
}

// #endregion registry-struct

// #region register

// Register adds a heuristic at the candidate stage.
func (r *Registry) Register(id, ruleText, owner string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return Record{}, fmt.Errorf("heuristic %s already registered", id)
	}
	rec := &Record{
		HeuristicID: id,
		RuleText:    ruleText,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
		Stage:       StageCandidate,
	}
	rec.TransitionLog = append(rec.TransitionLog, Transition{
		From:   "",
		To:     StageCandidate,
		Reason: "registration",
		At:     rec.CreatedAt,
	})
	r.records[id] = rec
	r.order = append(r.order, id)
	return rec.clone(), nil
}

// #endregion register

// #region update-evidence

// UpdateEvidence stores the counters and recomputes the stage from the
// threshold policy. A transition is logged only when the computed stage
// differs from the current one. Deprecated heuristics keep their counters
// updated but never leave the terminal stage.
func (r *Registry) UpdateEvidence(id string, evidenceCount int, successRate float64) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.EvidenceCount = evidenceCount
	rec.SuccessRate = successRate

	if rec.Stage == StageDeprecated {
		return rec.clone(), nil
	}

	computed := r.stageForEvidence(evidenceCount, successRate)
	if computed != rec.Stage {
		r.transition(rec, computed, fmt.Sprintf("evidence updated: count=%d rate=%.2f", evidenceCount, successRate))
	}
	return rec.clone(), nil
}

func (r *Registry) stageForEvidence(count int, rate float64) Stage {
	switch {
	case count >= r.config.PromoteEvidence && rate >= r.config.PromoteRate:
		return StagePromoted
	case count >= r.config.QualifyEvidence && rate >= r.config.QualifyRate:
		return StageQualified
	default:
		return StageCandidate
	}
}

// #endregion update-evidence

// #region promote

// Promote moves a qualified or promoted heuristic to promoted and then
// immediately to active. Promoting an already-active heuristic is a no-op
// success.
func (r *Registry) Promote(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch rec.Stage {
	case StageDeprecated:
		return Record{}, fmt.Errorf("%w: deprecated heuristic cannot be promoted", ErrInvalidTransition)
	case StageCandidate:
		return Record{}, fmt.Errorf("%w: heuristic %s does not meet promotion threshold", ErrInvalidTransition, id)
	case StageActive:
		return rec.clone(), nil
	}

	if rec.Stage == StageQualified {
		r.transition(rec, StagePromoted, "promotion")
	}
	r.transition(rec, StageActive, "activation")
	r.active[id] = true
	return rec.clone(), nil
}

// Activate moves a promoted heuristic into active use. Activation requires
// the heuristic to already be promoted or active.
func (r *Registry) Activate(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Stage != StagePromoted && rec.Stage != StageActive {
		return Record{}, fmt.Errorf("%w: cannot activate heuristic in stage %s", ErrInvalidTransition, rec.Stage)
	}
	if rec.Stage == StagePromoted {
		r.transition(rec, StageActive, "activation")
	}
	r.active[id] = true
	return rec.clone(), nil
}

// Deprecate unconditionally retires a heuristic. Deprecated is terminal.
func (r *Registry) Deprecate(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Stage != StageDeprecated {
		r.transition(rec, StageDeprecated, "deprecation")
	}
	delete(r.active, id)
	return rec.clone(), nil
}

// transition appends to the audit trail and applies the stage change.
// Callers hold the registry lock.
func (r *Registry) transition(rec *Record, to Stage, reason string) {
	rec.TransitionLog = append(rec.TransitionLog, Transition{
		From:   rec.Stage,
		To:     to,
		Reason: reason,
		At:     time.Now().UTC(),
	})
	if rec.Stage == StageActive && to != StageActive {
		delete(r.active, rec.HeuristicID)
	}
	rec.Stage = to
}

// #endregion promote

// #region collisions

// DetectCollisions compares the target heuristic's rule text against every
// other registered heuristic. Two heuristics collide when their lower-cased
// whitespace token sets share at least MinOverlapTerms terms. Each collision
// appends the other id to the examined record's DissentFrom (deduplicated);
// recording is one-directional per invocation.
func (r *Registry) DetectCollisions(id string) ([]Collision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var collisions []Collision
	for _, otherID := range r.order {
		if otherID == id {
			continue
		}
		other := r.records[otherID]
		overlap := sharedTerms(rec.RuleText, other.RuleText)
		if len(overlap) < r.config.MinOverlapTerms {
			continue
		}
		collisions = append(collisions, Collision{
			HeuristicID:   id,
			ConflictsWith: otherID,
			OverlapTerms:  overlap,
		})
		if !contains(rec.DissentFrom, otherID) {
			rec.DissentFrom = append(rec.DissentFrom, otherID)
		}
	}
	return collisions, nil
}

// #endregion collisions

// #region listings

// ListCandidates returns heuristics not yet decided: candidate, qualified,
// and promoted stages. Active and deprecated heuristics are excluded.
func (r *Registry) ListCandidates() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, id := range r.order {
		rec := r.records[id]
		switch rec.Stage {
		case StageCandidate, StageQualified, StagePromoted:
			out = append(out, rec.clone())
		}
	}
	return out
}

// Get returns a copy of one heuristic record.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.clone(), nil
}

// GovernanceSnapshot dumps every record plus the active-id set.
func (r *Registry) GovernanceSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{}
	for _, id := range r.order {
		snap.Records = append(snap.Records, r.records[id].clone())
		if r.active[id] {
			snap.ActiveIDs = append(snap.ActiveIDs, id)
		}
	}
	return snap
}

// #endregion listings

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
