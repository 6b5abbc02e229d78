package provenance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS provenance_records (
	id                 TEXT PRIMARY KEY,
	source_artifact_id TEXT NOT NULL,
	source_hash        TEXT NOT NULL,
	extractor_id       TEXT NOT NULL,
	captured_at        TEXT NOT NULL,
	notes              TEXT
);

CREATE TABLE IF NOT EXISTS evidence_spans (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	provenance_id TEXT NOT NULL,
	start_offset  INTEGER NOT NULL,
	end_offset    INTEGER NOT NULL,
	quote         TEXT,
	FOREIGN KEY (provenance_id) REFERENCES provenance_records(id)
);

CREATE TABLE IF NOT EXISTS artifact_provenance_links (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	provenance_id TEXT NOT NULL,
	target_type   TEXT NOT NULL,
	target_id     TEXT NOT NULL,
	FOREIGN KEY (provenance_id) REFERENCES provenance_records(id)
);

CREATE INDEX IF NOT EXISTS idx_provenance_source ON provenance_records(source_artifact_id);
CREATE INDEX IF NOT EXISTS idx_spans_offsets ON evidence_spans(start_offset, end_offset);
`

// #endregion schema

// #region store-struct
// Store is the write-gate over the provenance relations. Provenance is never
// embedded in the artifact it certifies; it is a separate record reached
// through the link table, so the same evidence can back multiple targets.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and ensures the provenance relations exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB ensures the provenance relations on an existing connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. inspect).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region write-gate
// ValidateWriteGate is the pre-flight check for a provenance write. It
// performs no I/O and must be callable before any side effect on the
// artifact being finalized.
func (s *Store) ValidateWriteGate(rec Record, targetType, targetID string) error {
	if targetType == "" {
		return errGateValidationf("target type is empty")
	}
	if targetID == "" {
		return errGateValidationf("target id is empty")
	}
	return rec.Validate()
}

// #endregion write-gate

// #region record-provenance
// RecordProvenance re-validates, then persists the record, its spans, and the
// artifact link inside one transaction. Returns the generated provenance id.
// Persistence failures surface as ErrGatePersistence so the caller can roll
// back the artifact it was about to finalize.
func (s *Store) RecordProvenance(rec Record, targetType, targetID string) (string, error) {
	if err := s.ValidateWriteGate(rec, targetType, targetID); err != nil {
		return "", err
	}

	id := uuid.New().String()
	capturedAt := rec.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", errGatePersistencef("begin tx: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO provenance_records (id, source_artifact_id, source_hash, extractor_id, captured_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.SourceArtifactID, rec.SourceHash, rec.ExtractorID,
		capturedAt.Format(time.RFC3339Nano), nullIfEmpty(rec.Notes),
	)
	if err != nil {
		return "", errGatePersistencef("insert record: %v", err)
	}

	for _, span := range rec.Spans {
		_, err = tx.Exec(
			`INSERT INTO evidence_spans (provenance_id, start_offset, end_offset, quote)
			 VALUES (?, ?, ?, ?)`,
			id, span.StartOffset, span.EndOffset, nullIfEmpty(span.Quote),
		)
		if err != nil {
			return "", errGatePersistencef("insert span: %v", err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO artifact_provenance_links (provenance_id, target_type, target_id)
		 VALUES (?, ?, ?)`,
		id, targetType, targetID,
	)
	if err != nil {
		return "", errGatePersistencef("insert link: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return "", errGatePersistencef("commit: %v", err)
	}
	return id, nil
}

// #endregion record-provenance

// #region link-target
// LinkTarget adds an additional artifact link to an existing provenance
// record, so one piece of evidence can back several targets.
func (s *Store) LinkTarget(provenanceID, targetType, targetID string) error {
	if targetType == "" || targetID == "" {
		return errGateValidationf("target type and id must be non-empty")
	}
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM provenance_records WHERE id = ?`, provenanceID,
	).Scan(&exists)
	if err != nil {
		return errGatePersistencef("check record: %v", err)
	}
	if exists == 0 {
		return errGateValidationf("provenance record %s not found", provenanceID)
	}
	_, err = s.db.Exec(
		`INSERT INTO artifact_provenance_links (provenance_id, target_type, target_id)
		 VALUES (?, ?, ?)`,
		provenanceID, targetType, targetID,
	)
	if err != nil {
		return errGatePersistencef("insert link: %v", err)
	}
	return nil
}

// #endregion link-target

// #region get-for-artifact
// ProvenanceForArtifact reconstructs the full record (with all spans) backing
// a target by following the link table. Returns nil when no link exists.
func (s *Store) ProvenanceForArtifact(targetType, targetID string) (*Record, error) {
	var provID string
	var rec Record
	var capturedStr string
	var notes sql.NullString

	err := s.db.QueryRow(
		`SELECT p.id, p.source_artifact_id, p.source_hash, p.extractor_id, p.captured_at, p.notes
		 FROM provenance_records p
		 JOIN artifact_provenance_links l ON l.provenance_id = p.id
		 WHERE l.target_type = ? AND l.target_id = ?
		 ORDER BY l.id LIMIT 1`,
		targetType, targetID,
	).Scan(&provID, &rec.SourceArtifactID, &rec.SourceHash, &rec.ExtractorID, &capturedStr, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get provenance for %s/%s: %w", targetType, targetID, err)
	}

	rec.CapturedAt, _ = time.Parse(time.RFC3339Nano, capturedStr)
	if notes.Valid {
		rec.Notes = notes.String
	}

	rows, err := s.db.Query(
		`SELECT start_offset, end_offset, quote FROM evidence_spans
		 WHERE provenance_id = ? ORDER BY id`,
		provID,
	)
	if err != nil {
		return nil, fmt.Errorf("get spans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var span EvidenceSpan
		var quote sql.NullString
		if err := rows.Scan(&span.StartOffset, &span.EndOffset, &quote); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		if quote.Valid {
			span.Quote = quote.String
		}
		// Spans cite the record's source artifact; the span table does not
		// repeat the column.
		span.ArtifactID = rec.SourceArtifactID
		rec.Spans = append(rec.Spans, span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return &rec, nil
}

// #endregion get-for-artifact

// #region delete-links
// DeleteLinksForTarget removes all links for a target. For each affected
// provenance id with no remaining link, the record and its spans are deleted.
// The count-then-delete sequence runs inside a single transaction so a
// concurrent link insertion cannot be lost between the count and the delete.
func (s *Store) DeleteLinksForTarget(targetType, targetID string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT DISTINCT provenance_id FROM artifact_provenance_links
		 WHERE target_type = ? AND target_id = ?`,
		targetType, targetID,
	)
	if err != nil {
		return 0, fmt.Errorf("select links: %w", err)
	}
	var provIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan link: %w", err)
		}
		provIDs = append(provIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate links: %w", err)
	}
	rows.Close()

	res, err := tx.Exec(
		`DELETE FROM artifact_provenance_links WHERE target_type = ? AND target_id = ?`,
		targetType, targetID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete links: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	for _, provID := range provIDs {
		var remaining int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM artifact_provenance_links WHERE provenance_id = ?`, provID,
		).Scan(&remaining)
		if err != nil {
			return 0, fmt.Errorf("count links: %w", err)
		}
		if remaining > 0 {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM evidence_spans WHERE provenance_id = ?`, provID); err != nil {
			return 0, fmt.Errorf("delete spans: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM provenance_records WHERE id = ?`, provID); err != nil {
			return 0, fmt.Errorf("delete record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(deleted), nil
}

// #endregion delete-links

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
