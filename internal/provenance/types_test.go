package provenance

import (
	"errors"
	"strings"
	"testing"
)

func validRecord() Record {
	return Record{
		SourceArtifactID: "doc-1",
		SourceHash:       strings.Repeat("ab", 32),
		ExtractorID:      "extractor-v1",
		Spans: []EvidenceSpan{
			{ArtifactID: "doc-1", StartOffset: 10, EndOffset: 42, Quote: "the cited passage"},
		},
	}
}

func TestRecordValidateOK(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRecordValidateNoSpans(t *testing.T) {
	rec := validRecord()
	rec.Spans = nil
	err := rec.Validate()
	if !errors.Is(err, ErrGateValidation) {
		t.Fatalf("expected ErrGateValidation, got %v", err)
	}
}

func TestSpanValidateOffsets(t *testing.T) {
	cases := []struct {
		name  string
		start int
		end   int
		ok    bool
	}{
		{"well ordered", 0, 1, true},
		{"equal offsets", 5, 5, false},
		{"inverted", 10, 3, false},
		{"negative start", -1, 4, false},
	}
	for _, tc := range cases {
		span := EvidenceSpan{ArtifactID: "doc-1", StartOffset: tc.start, EndOffset: tc.end}
		err := span.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRecordValidateBadHash(t *testing.T) {
	rec := validRecord()
	for _, hash := range []string{
		"",
		"abc123",
		strings.Repeat("g", 64),
		strings.Repeat("AB", 32),
		strings.Repeat("ab", 33),
	} {
		rec.SourceHash = hash
		if err := rec.Validate(); !errors.Is(err, ErrGateValidation) {
			t.Errorf("hash %q: expected ErrGateValidation, got %v", hash, err)
		}
	}
}
