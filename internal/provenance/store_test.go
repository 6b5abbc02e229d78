package provenance

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValidateWriteGateEmptyTarget(t *testing.T) {
	s := tempStore(t)
	rec := validRecord()

	if err := s.ValidateWriteGate(rec, "", "entity-1"); !errors.Is(err, ErrGateValidation) {
		t.Fatalf("empty target type: expected ErrGateValidation, got %v", err)
	}
	if err := s.ValidateWriteGate(rec, "entity", ""); !errors.Is(err, ErrGateValidation) {
		t.Fatalf("empty target id: expected ErrGateValidation, got %v", err)
	}
}

func TestRecordProvenanceRejectsInvalidBeforeWrite(t *testing.T) {
	s := tempStore(t)
	rec := validRecord()
	rec.Spans = nil

	if _, err := s.RecordProvenance(rec, "entity", "entity-1"); !errors.Is(err, ErrGateValidation) {
		t.Fatalf("expected ErrGateValidation, got %v", err)
	}

	// Nothing may have been persisted.
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM provenance_records`).Scan(&count); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted records, got %d", count)
	}
}

func TestRecordAndReconstructRoundTrip(t *testing.T) {
	s := tempStore(t)
	rec := validRecord()
	rec.CapturedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec.Notes = "captured during ingestion"
	rec.Spans = append(rec.Spans, EvidenceSpan{
		ArtifactID: "doc-1", StartOffset: 100, EndOffset: 180,
	})

	id, err := s.RecordProvenance(rec, "entity", "entity-1")
	if err != nil {
		t.Fatalf("RecordProvenance: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty provenance id")
	}

	got, err := s.ProvenanceForArtifact("entity", "entity-1")
	if err != nil {
		t.Fatalf("ProvenanceForArtifact: %v", err)
	}
	if got == nil {
		t.Fatal("expected a linked record")
	}
	if got.SourceArtifactID != rec.SourceArtifactID {
		t.Errorf("source artifact: got %s want %s", got.SourceArtifactID, rec.SourceArtifactID)
	}
	if got.SourceHash != rec.SourceHash {
		t.Errorf("hash: got %s want %s", got.SourceHash, rec.SourceHash)
	}
	if got.ExtractorID != rec.ExtractorID {
		t.Errorf("extractor: got %s want %s", got.ExtractorID, rec.ExtractorID)
	}
	if !got.CapturedAt.Equal(rec.CapturedAt) {
		t.Errorf("captured at: got %v want %v", got.CapturedAt, rec.CapturedAt)
	}
	if got.Notes != rec.Notes {
		t.Errorf("notes: got %q want %q", got.Notes, rec.Notes)
	}
	if len(got.Spans) != len(rec.Spans) {
		t.Fatalf("spans: got %d want %d", len(got.Spans), len(rec.Spans))
	}
	for i, span := range got.Spans {
		want := rec.Spans[i]
		if span.StartOffset != want.StartOffset || span.EndOffset != want.EndOffset || span.Quote != want.Quote {
			t.Errorf("span %d: got %+v want %+v", i, span, want)
		}
		if span.ArtifactID != rec.SourceArtifactID {
			t.Errorf("span %d artifact: got %s want %s", i, span.ArtifactID, rec.SourceArtifactID)
		}
	}
}

func TestProvenanceForArtifactUnlinked(t *testing.T) {
	s := tempStore(t)
	got, err := s.ProvenanceForArtifact("entity", "nope")
	if err != nil {
		t.Fatalf("ProvenanceForArtifact: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unlinked target, got %+v", got)
	}
}

func TestDeleteOnlyLinkRemovesRecordAndSpans(t *testing.T) {
	s := tempStore(t)
	if _, err := s.RecordProvenance(validRecord(), "entity", "entity-1"); err != nil {
		t.Fatalf("RecordProvenance: %v", err)
	}

	deleted, err := s.DeleteLinksForTarget("entity", "entity-1")
	if err != nil {
		t.Fatalf("DeleteLinksForTarget: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted link, got %d", deleted)
	}

	for _, table := range []string{"provenance_records", "evidence_spans", "artifact_provenance_links"} {
		var count int
		if err := s.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s: expected 0 rows after orphan cleanup, got %d", table, count)
		}
	}
}

func TestDeleteOneOfTwoLinksKeepsRecord(t *testing.T) {
	s := tempStore(t)
	id, err := s.RecordProvenance(validRecord(), "entity", "entity-1")
	if err != nil {
		t.Fatalf("RecordProvenance: %v", err)
	}
	if err := s.LinkTarget(id, "proposal", "proposal-7"); err != nil {
		t.Fatalf("LinkTarget: %v", err)
	}

	deleted, err := s.DeleteLinksForTarget("entity", "entity-1")
	if err != nil {
		t.Fatalf("DeleteLinksForTarget: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted link, got %d", deleted)
	}

	// Record stays queryable through the remaining link.
	got, err := s.ProvenanceForArtifact("proposal", "proposal-7")
	if err != nil {
		t.Fatalf("ProvenanceForArtifact: %v", err)
	}
	if got == nil {
		t.Fatal("expected record via remaining link")
	}
	if len(got.Spans) == 0 {
		t.Fatal("expected spans to survive")
	}
}

func TestLinkTargetUnknownRecord(t *testing.T) {
	s := tempStore(t)
	err := s.LinkTarget("no-such-id", "entity", "entity-1")
	if !errors.Is(err, ErrGateValidation) {
		t.Fatalf("expected ErrGateValidation, got %v", err)
	}
}

func TestDeleteLinksForUnknownTarget(t *testing.T) {
	s := tempStore(t)
	deleted, err := s.DeleteLinksForTarget("entity", "ghost")
	if err != nil {
		t.Fatalf("DeleteLinksForTarget: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected 0 deleted links, got %d", deleted)
	}
}

func TestSameEvidenceBacksMultipleTargets(t *testing.T) {
	s := tempStore(t)
	id, err := s.RecordProvenance(validRecord(), "entity", "entity-1")
	if err != nil {
		t.Fatalf("RecordProvenance: %v", err)
	}
	if err := s.LinkTarget(id, "analysis_version", "av-3"); err != nil {
		t.Fatalf("LinkTarget: %v", err)
	}

	a, err := s.ProvenanceForArtifact("entity", "entity-1")
	if err != nil || a == nil {
		t.Fatalf("entity lookup: %v %v", a, err)
	}
	b, err := s.ProvenanceForArtifact("analysis_version", "av-3")
	if err != nil || b == nil {
		t.Fatalf("analysis lookup: %v %v", b, err)
	}
	if a.SourceHash != b.SourceHash {
		t.Fatal("expected both targets to share the same evidence")
	}
}
