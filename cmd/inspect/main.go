package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/governance-engine/internal/provenance"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to governance.db")
	targetType := flag.String("target-type", "", "show provenance for one target (with --target-id)")
	targetID := flag.String("target-id", "", "target id (with --target-type)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/governance.db [--target-type t --target-id id] [--json]")
		os.Exit(2)
	}

	store, err := provenance.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *targetType != "" || *targetID != "" {
		if *targetType == "" || *targetID == "" {
			fmt.Fprintln(os.Stderr, "--target-type and --target-id must be given together")
			os.Exit(2)
		}
		if err := runDetailMode(store, *targetType, *targetID, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runListMode(store, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ProvenanceID     string `json:"provenance_id"`
	SourceArtifactID string `json:"source_artifact_id"`
	ExtractorID      string `json:"extractor_id"`
	CapturedAt       string `json:"captured_at"`
	SpanCount        int    `json:"span_count"`
	LinkCount        int    `json:"link_count"`
}

func runListMode(store *provenance.Store, jsonOut bool) error {
	db := store.DB()
	rows, err := db.Query(
		`SELECT p.id, p.source_artifact_id, p.extractor_id, p.captured_at,
		        (SELECT COUNT(*) FROM evidence_spans s WHERE s.provenance_id = p.id),
		        (SELECT COUNT(*) FROM artifact_provenance_links l WHERE l.provenance_id = p.id)
		 FROM provenance_records p ORDER BY p.captured_at`,
	)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var listRows []listRow
	for rows.Next() {
		var r listRow
		if err := rows.Scan(&r.ProvenanceID, &r.SourceArtifactID, &r.ExtractorID, &r.CapturedAt, &r.SpanCount, &r.LinkCount); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		listRows = append(listRows, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	if len(listRows) == 0 {
		fmt.Fprintln(os.Stderr, "no provenance records found")
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listRows)
	}

	fmt.Printf("%-38s %-20s %-14s %-6s %-6s\n", "PROVENANCE", "SOURCE", "EXTRACTOR", "SPANS", "LINKS")
	for _, r := range listRows {
		fmt.Printf("%-38s %-20s %-14s %-6d %-6d\n", r.ProvenanceID, r.SourceArtifactID, r.ExtractorID, r.SpanCount, r.LinkCount)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOut struct {
	TargetType string             `json:"target_type"`
	TargetID   string             `json:"target_id"`
	Record     *provenance.Record `json:"record"`
	Links      []provenance.Link  `json:"links"`
}

func runDetailMode(store *provenance.Store, targetType, targetID string, jsonOut bool) error {
	rec, err := store.ProvenanceForArtifact(targetType, targetID)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "no provenance linked to %s/%s\n", targetType, targetID)
		return nil
	}

	links, err := linksForTarget(store.DB(), targetType, targetID)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detailOut{TargetType: targetType, TargetID: targetID, Record: rec, Links: links})
	}

	fmt.Printf("target:    %s/%s\n", targetType, targetID)
	fmt.Printf("source:    %s\n", rec.SourceArtifactID)
	fmt.Printf("hash:      %s\n", rec.SourceHash)
	fmt.Printf("extractor: %s\n", rec.ExtractorID)
	fmt.Printf("captured:  %s\n", rec.CapturedAt)
	if rec.Notes != "" {
		fmt.Printf("notes:     %s\n", rec.Notes)
	}
	fmt.Printf("spans (%d):\n", len(rec.Spans))
	for _, s := range rec.Spans {
		fmt.Printf("  [%d..%d] %s\n", s.StartOffset, s.EndOffset, s.Quote)
	}
	return nil
}

func linksForTarget(db *sql.DB, targetType, targetID string) ([]provenance.Link, error) {
	rows, err := db.Query(
		`SELECT provenance_id, target_type, target_id FROM artifact_provenance_links
		 WHERE target_type = ? AND target_id = ? ORDER BY id`,
		targetType, targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var links []provenance.Link
	for rows.Next() {
		var l provenance.Link
		if err := rows.Scan(&l.ProvenanceID, &l.TargetType, &l.TargetID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// #endregion detail-mode
