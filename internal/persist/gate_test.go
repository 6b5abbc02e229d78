package persist

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/danielpatrickdp/governance-engine/internal/judge"
)

func passRun(id string) (judge.PlannerRun, judge.JudgeRun) {
	run := judge.PlannerRun{RunID: id, ObjectiveID: "obj-1", ArtifactID: "art-1"}
	jr := judge.JudgeRun{
		RunID:        "judge::" + id + "::v1",
		PlannerRunID: id,
		ArtifactID:   "art-1",
		Verdict:      judge.VerdictPass,
		Score:        0.73,
	}
	return run, jr
}

func TestPersistOnPass(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	run, jr := passRun("run-1")
	output := map[string]any{"result": "ok"}

	out, err := g.PersistPlannerOutput(run, jr, output)
	if err != nil {
		t.Fatalf("PersistPlannerOutput: %v", err)
	}
	if out.PlannerRunID != "run-1" || out.JudgeRunID != jr.RunID {
		t.Fatalf("unexpected output record: %+v", out)
	}
	if out.ObjectiveID != "obj-1" || out.ArtifactID != "art-1" {
		t.Fatalf("run fields not carried: %+v", out)
	}
	if out.PersistedAt.IsZero() {
		t.Fatal("expected persisted timestamp")
	}

	got, err := g.Persisted("run-1")
	if err != nil {
		t.Fatalf("Persisted: %v", err)
	}
	if got.JudgeRunID != jr.RunID {
		t.Fatalf("lookup mismatch: %+v", got)
	}
}

func TestBlockOnFail(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	run, jr := passRun("run-1")
	jr.Verdict = judge.VerdictFail
	jr.Reasons = []string{"missing required key: steps"}
	jr.Remediation = []string{"add strategy.steps"}

	_, err := g.PersistPlannerOutput(run, jr, map[string]any{"result": "rejected"})
	if !errors.Is(err, ErrPersistenceBlocked) {
		t.Fatalf("expected ErrPersistenceBlocked, got %v", err)
	}

	if _, err := g.Persisted("run-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after block, got %v", err)
	}

	b, ok := g.Blocked("run-1")
	if !ok {
		t.Fatal("expected a blocked record")
	}
	if len(b.Reasons) != 1 || b.Reasons[0] != "missing required key: steps" {
		t.Fatalf("blocked reasons: %v", b.Reasons)
	}
	if len(b.Remediation) != 1 || b.Remediation[0] != "add strategy.steps" {
		t.Fatalf("blocked remediation: %v", b.Remediation)
	}
	if !strings.Contains(b.OutputPreview, "rejected") {
		t.Fatalf("preview should capture the rejected output, got %q", b.OutputPreview)
	}
}

func TestMalformedVerdictFailsClosed(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	for _, verdict := range []judge.Verdict{"", "pass", "PASSED", "MAYBE"} {
		run, jr := passRun("run-" + string(verdict))
		jr.Verdict = verdict
		if _, err := g.PersistPlannerOutput(run, jr, nil); !errors.Is(err, ErrPersistenceBlocked) {
			t.Errorf("verdict %q: expected ErrPersistenceBlocked, got %v", verdict, err)
		}
	}
}

func TestBlockedAbsenceMeansNeverAttempted(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	if _, ok := g.Blocked("ghost"); ok {
		t.Fatal("expected no blocked record for unattempted run")
	}
}

func TestPreviewTruncated(t *testing.T) {
	g := NewGate(GateConfig{PreviewLimit: 16})
	run, jr := passRun("run-1")
	jr.Verdict = judge.VerdictFail

	_, err := g.PersistPlannerOutput(run, jr, map[string]any{"payload": strings.Repeat("x", 200)})
	if !errors.Is(err, ErrPersistenceBlocked) {
		t.Fatalf("expected ErrPersistenceBlocked, got %v", err)
	}
	b, _ := g.Blocked("run-1")
	if len(b.OutputPreview) > 16+len("...") {
		t.Fatalf("preview not truncated: %d bytes", len(b.OutputPreview))
	}
}

func TestConcurrentPersistSerializes(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	run, jr := passRun("run-1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.PersistPlannerOutput(run, jr, map[string]any{"n": 1})
		}()
	}
	wg.Wait()

	if _, err := g.Persisted("run-1"); err != nil {
		t.Fatalf("Persisted: %v", err)
	}
	if _, ok := g.Blocked("run-1"); ok {
		t.Fatal("a passing run must never acquire a blocked record")
	}
}
