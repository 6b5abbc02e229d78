package persist

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/governance-engine/internal/judge"
)

// #region errors
var (
	// ErrPersistenceBlocked means the judge verdict was not PASS. This is an
	// expected control-flow outcome, not a system failure; callers branch on
	// it and surface the recorded BlockedArtifact.
	ErrPersistenceBlocked = errors.New("persistence blocked")

	// ErrNotFound marks a lookup for a planner run that was never persisted.
	ErrNotFound = errors.New("not found")
)

// #endregion errors

// #region gate-struct

// Gate is the single choke point between a judged planner output and durable
// persistence. Mutation of both maps is serialized behind one mutex so
// concurrent judge-then-persist sequences for the same planner run cannot
// race to produce both a persisted and a blocked record.
type Gate struct {
	mu        sync.Mutex
	config    GateConfig
	persisted map[string]PersistedOutput
	blocked   map[string]BlockedArtifact
}

// NewGate creates a persistence gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	if config.PreviewLimit <= 0 {
		config.PreviewLimit = DefaultGateConfig().PreviewLimit
	}
	return &Gate{
		config:    config,
		persisted: make(map[string]PersistedOutput),
		blocked:   make(map[string]BlockedArtifact),
	}
}

// #endregion gate-struct

// #region persist

// PersistPlannerOutput persists an output only if the judge verdict is
// exactly PASS. Anything else, including a malformed or empty verdict, is
// fail-closed: a BlockedArtifact is recorded and ErrPersistenceBlocked
// returned. Ambiguity resolves to blocked, never to persisted.
func (g *Gate) PersistPlannerOutput(run judge.PlannerRun, jr judge.JudgeRun, output map[string]any) (PersistedOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if jr.Verdict != judge.VerdictPass {
		blocked := BlockedArtifact{
			PlannerRunID:  run.RunID,
			JudgeRunID:    jr.RunID,
			BlockedAt:     time.Now().UTC(),
			Reason:        fmt.Sprintf("judge verdict %q is not PASS", jr.Verdict),
			Reasons:       append([]string(nil), jr.Reasons...),
			Remediation:   append([]string(nil), jr.Remediation...),
			OutputPreview: previewOf(output, g.config.PreviewLimit),
		}
		g.blocked[run.RunID] = blocked
		return PersistedOutput{}, fmt.Errorf("planner run %s: %w", run.RunID, ErrPersistenceBlocked)
	}

	out := PersistedOutput{
		PlannerRunID: run.RunID,
		JudgeRunID:   jr.RunID,
		ArtifactID:   run.ArtifactID,
		ObjectiveID:  run.ObjectiveID,
		PersistedAt:  time.Now().UTC(),
		Output:       output,
	}
	g.persisted[run.RunID] = out
	return out, nil
}

// #endregion persist

// #region lookups

// Persisted returns the persisted output for a planner run, or ErrNotFound.
func (g *Gate) Persisted(plannerRunID string) (PersistedOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out, ok := g.persisted[plannerRunID]
	if !ok {
		return PersistedOutput{}, fmt.Errorf("persisted output for %s: %w", plannerRunID, ErrNotFound)
	}
	return out, nil
}

// Blocked returns the blocked trace for a planner run. Absence is not an
// error; it distinguishes "never attempted" from "blocked".
func (g *Gate) Blocked(plannerRunID string) (BlockedArtifact, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.blocked[plannerRunID]
	return b, ok
}

// #endregion lookups

// #region preview

// previewOf renders a bounded canonical preview of the rejected output.
func previewOf(output map[string]any, limit int) string {
	canon, err := judge.CanonicalJSON(output)
	if err != nil {
		return fmt.Sprintf("<unrenderable output: %v>", err)
	}
	if len(canon) > limit {
		return string(canon[:limit]) + "..."
	}
	return string(canon)
}

// #endregion preview
