package judge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"
)

// #region errors
var (
	// ErrNotFound marks a lookup by unknown planner run, judge run, or
	// ruleset version.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveRuleset is returned by JudgePlan before any ruleset has
	// been activated.
	ErrNoActiveRuleset = errors.New("no active ruleset")
)

// #endregion errors

// failScoreCap keeps every FAIL verdict below the 0.5 line regardless of
// what the digest produced.
const failScoreCap = 0.49

// #region core-struct

// Core holds the versioned rulesets and the planner/judge run registries.
// It is an explicit, injected store rather than package-level state so tests
// and multi-instance deployments get isolation for free.
type Core struct {
	mu            sync.Mutex
	rulesets      map[int]Ruleset
	activeVersion int // 0 = none active
	planners      map[string]PlannerRun
	judges        map[string]JudgeRun
	judgeOrder    []string // insertion order, used to break CreatedAt ties
}

// NewCore returns an empty planner/judge core with no active ruleset.
func NewCore() *Core {
	return &Core{
		rulesets: make(map[int]Ruleset),
		planners: make(map[string]PlannerRun),
		judges:   make(map[string]JudgeRun),
	}
}

// #endregion core-struct

// #region rulesets

// CreateRuleset allocates the next version number for a named ruleset. The
// new version is not activated.
func (c *Core) CreateRuleset(name string, requiredKeys []string) Ruleset {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := 1
	for v := range c.rulesets {
		if v >= next {
			next = v + 1
		}
	}
	rs := Ruleset{
		Version:      next,
		Name:         name,
		RequiredKeys: append([]string(nil), requiredKeys...),
	}
	c.rulesets[next] = rs
	return rs
}

// ActivateRuleset makes the given version the one used by subsequent
// JudgePlan calls. Activation is immediately visible to all callers.
func (c *Core) ActivateRuleset(version int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rulesets[version]; !ok {
		return fmt.Errorf("ruleset version %d: %w", version, ErrNotFound)
	}
	c.activeVersion = version
	return nil
}

// ActiveRuleset returns the currently active ruleset.
func (c *Core) ActiveRuleset() (Ruleset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeVersion == 0 {
		return Ruleset{}, ErrNoActiveRuleset
	}
	return c.rulesets[c.activeVersion], nil
}

// #endregion rulesets

// #region create-plan

// CreatePlan registers an immutable planner run. No validation beyond the
// type contract happens here; judgment is a separate step.
func (c *Core) CreatePlan(runID, objectiveID, artifactID string, heuristicIDs []string, strategy map[string]any) PlannerRun {
	run := PlannerRun{
		RunID:        runID,
		ObjectiveID:  objectiveID,
		ArtifactID:   artifactID,
		HeuristicIDs: append([]string(nil), heuristicIDs...),
		Strategy:     strategy,
		CreatedAt:    time.Now().UTC(),
	}

	c.mu.Lock()
	c.planners[runID] = run
	c.mu.Unlock()
	return run
}

// Plan looks up a planner run by id.
func (c *Core) Plan(runID string) (PlannerRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.planners[runID]
	if !ok {
		return PlannerRun{}, fmt.Errorf("planner run %s: %w", runID, ErrNotFound)
	}
	return run, nil
}

// #endregion create-plan

// #region judge-plan

// JudgePlan deterministically judges a planner run's strategy against the
// active ruleset. The same strategy content judged under the same active
// version always produces the same score and verdict; that is what makes
// downstream persistence auditable and replayable.
func (c *Core) JudgePlan(plannerRunID string) (JudgeRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.planners[plannerRunID]
	if !ok {
		return JudgeRun{}, fmt.Errorf("planner run %s: %w", plannerRunID, ErrNotFound)
	}
	if c.activeVersion == 0 {
		return JudgeRun{}, ErrNoActiveRuleset
	}
	ruleset := c.rulesets[c.activeVersion]

	// Presence check only: an empty list or empty string satisfies a key.
	var missing []string
	for _, key := range ruleset.RequiredKeys {
		if _, ok := run.Strategy[key]; !ok {
			missing = append(missing, key)
		}
	}

	score, err := strategyScore(run.Strategy)
	if err != nil {
		return JudgeRun{}, fmt.Errorf("score strategy: %w", err)
	}

	verdict := VerdictPass
	var reasons, remediation []string
	if len(missing) > 0 {
		verdict = VerdictFail
		score = math.Min(score, failScoreCap)
		for _, key := range missing {
			reasons = append(reasons, "missing required key: "+key)
			remediation = append(remediation, "add strategy."+key)
		}
	}

	// Re-judging under a different active version yields a distinct,
	// retained judge run.
	judgeID := fmt.Sprintf("judge::%s::v%d", plannerRunID, ruleset.Version)
	jr := JudgeRun{
		RunID:        judgeID,
		PlannerRunID: plannerRunID,
		ArtifactID:   run.ArtifactID,
		Verdict:      verdict,
		Score:        score,
		Reasons:      reasons,
		Remediation:  remediation,
		CreatedAt:    time.Now().UTC(),
	}
	if _, seen := c.judges[judgeID]; !seen {
		c.judgeOrder = append(c.judgeOrder, judgeID)
	}
	c.judges[judgeID] = jr
	return jr, nil
}

// strategyScore derives the base score from the canonical digest of the
// strategy: the first 8 hex digits as an unsigned 32-bit integer, normalized
// to [0,1].
func strategyScore(strategy map[string]any) (float64, error) {
	canon, err := CanonicalJSON(strategy)
	if err != nil {
		return 0, err
	}
	digest := sha256.Sum256(canon)
	prefix := hex.EncodeToString(digest[:])[:8]
	n, err := strconv.ParseUint(prefix, 16, 32)
	if err != nil {
		// The prefix of a hex digest always parses; failure here means a
		// corrupt digest, which is an invariant violation.
		return 0, fmt.Errorf("parse digest prefix %q: %w", prefix, err)
	}
	return float64(n) / float64(math.MaxUint32), nil
}

// #endregion judge-plan

// #region judge-lookup

// Judge looks up a judge run by id.
func (c *Core) Judge(judgeRunID string) (JudgeRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	jr, ok := c.judges[judgeRunID]
	if !ok {
		return JudgeRun{}, fmt.Errorf("judge run %s: %w", judgeRunID, ErrNotFound)
	}
	return jr, nil
}

// LatestJudgeForPlanner returns the judge run with the latest CreatedAt among
// all runs referencing the planner run. Ties break toward later insertion.
func (c *Core) LatestJudgeForPlanner(plannerRunID string) (JudgeRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var latest JudgeRun
	found := false
	for _, id := range c.judgeOrder {
		jr := c.judges[id]
		if jr.PlannerRunID != plannerRunID {
			continue
		}
		if !found || !jr.CreatedAt.Before(latest.CreatedAt) {
			latest = jr
			found = true
		}
	}
	if !found {
		return JudgeRun{}, fmt.Errorf("judge runs for planner %s: %w", plannerRunID, ErrNotFound)
	}
	return latest, nil
}

// #endregion judge-lookup
