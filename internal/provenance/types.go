package provenance

import "time"

// #region evidence-span
// EvidenceSpan is a character-offset range into a source artifact,
// optionally carrying the quoted excerpt.
type EvidenceSpan struct {
	ArtifactID  string
	StartOffset int
	EndOffset   int
	Quote       string
}

// Validate checks span offset invariants.
func (s EvidenceSpan) Validate() error {
	if s.StartOffset < 0 || s.EndOffset < 0 {
		return errGateValidationf("span offsets must be non-negative (got %d..%d)", s.StartOffset, s.EndOffset)
	}
	if s.EndOffset <= s.StartOffset {
		return errGateValidationf("span end offset %d must exceed start offset %d", s.EndOffset, s.StartOffset)
	}
	return nil
}

// #endregion evidence-span

// #region provenance-record
// Record is the evidence envelope that must accompany any generated
// claim before it can be linked to a persisted target.
type Record struct {
	SourceArtifactID string
	SourceHash       string // sha256 of the cited source, 64 lowercase hex chars
	CapturedAt       time.Time
	ExtractorID      string
	Spans            []EvidenceSpan
	Notes            string
}

// Validate checks the record invariants: at least one span, well-formed
// spans, and a well-formed content hash.
func (r Record) Validate() error {
	if len(r.Spans) == 0 {
		return errGateValidationf("record must carry at least one evidence span")
	}
	for i, s := range r.Spans {
		if err := s.Validate(); err != nil {
			return errGateValidationf("span %d: %v", i, err)
		}
	}
	if !isContentHash(r.SourceHash) {
		return errGateValidationf("source hash %q is not 64 lowercase hex chars", r.SourceHash)
	}
	return nil
}

// #endregion provenance-record

// #region artifact-link
// Link relates a provenance record to one persisted target. A record may
// back several targets; when its last link is removed the record is orphaned
// and deleted.
type Link struct {
	ProvenanceID string
	TargetType   string
	TargetID     string
}

// #endregion artifact-link

// #region hash-check
// isContentHash reports whether s is a well-formed sha256 hex digest.
func isContentHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// #endregion hash-check
