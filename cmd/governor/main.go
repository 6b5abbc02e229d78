package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/governance-engine/internal/config"
	"github.com/danielpatrickdp/governance-engine/internal/heuristics"
	"github.com/danielpatrickdp/governance-engine/internal/judge"
	"github.com/danielpatrickdp/governance-engine/internal/persist"
	"github.com/danielpatrickdp/governance-engine/internal/provenance"
)

// #region main
func main() {
	cfgPath := envOr("GOVERNANCE_CONFIG", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	dbPath := envOr("GOVERNANCE_DB", cfg.DBPath)

	store, err := provenance.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open provenance store: %v", err)
	}
	defer store.Close()

	core := judge.NewCore()
	gate := persist.NewGate(cfg.GateConfig())
	registry := heuristics.NewRegistry(cfg.RegistryConfig())

	fmt.Println("Governance engine ready.")
	fmt.Printf("  DB: %s\n", dbPath)
	fmt.Println("Type 'help' for commands, 'quit' to exit:")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := dispatch(line, store, core, gate, registry); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// #endregion main

// #region dispatch
func dispatch(line string, store *provenance.Store, core *judge.Core, gate *persist.Gate, registry *heuristics.Registry) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		printHelp()
		return nil

	case "ruleset":
		if len(args) < 2 {
			return fmt.Errorf("usage: ruleset <name> <key1,key2,...>")
		}
		rs := core.CreateRuleset(args[0], strings.Split(args[1], ","))
		fmt.Printf("created ruleset %q version %d (required: %s)\n", rs.Name, rs.Version, strings.Join(rs.RequiredKeys, ", "))
		return nil

	case "activate":
		if len(args) != 1 {
			return fmt.Errorf("usage: activate <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version must be an integer: %v", err)
		}
		if err := core.ActivateRuleset(version); err != nil {
			return err
		}
		fmt.Printf("ruleset v%d active\n", version)
		return nil

	case "plan":
		if len(args) < 4 {
			return fmt.Errorf("usage: plan <run_id> <objective_id> <artifact_id> <strategy-json>")
		}
		var strategy map[string]any
		raw := strings.Join(args[3:], " ")
		if err := json.Unmarshal([]byte(raw), &strategy); err != nil {
			return fmt.Errorf("parse strategy: %w", err)
		}
		run := core.CreatePlan(args[0], args[1], args[2], nil, strategy)
		fmt.Printf("planner run %s registered (%d strategy keys)\n", run.RunID, len(run.Strategy))
		return nil

	case "judge":
		if len(args) != 1 {
			return fmt.Errorf("usage: judge <run_id>")
		}
		jr, err := core.JudgePlan(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s verdict=%s score=%.4f\n", jr.RunID, jr.Verdict, jr.Score)
		for _, r := range jr.Reasons {
			fmt.Printf("  reason: %s\n", r)
		}
		for _, r := range jr.Remediation {
			fmt.Printf("  remediation: %s\n", r)
		}
		return nil

	case "persist":
		if len(args) < 2 {
			return fmt.Errorf("usage: persist <run_id> <output-json>")
		}
		run, err := core.Plan(args[0])
		if err != nil {
			return err
		}
		jr, err := core.LatestJudgeForPlanner(args[0])
		if err != nil {
			return err
		}
		var output map[string]any
		raw := strings.Join(args[1:], " ")
		if err := json.Unmarshal([]byte(raw), &output); err != nil {
			return fmt.Errorf("parse output: %w", err)
		}
		out, err := gate.PersistPlannerOutput(run, jr, output)
		if errors.Is(err, persist.ErrPersistenceBlocked) {
			b, _ := gate.Blocked(args[0])
			fmt.Printf("BLOCKED: %s\n", b.Reason)
			for _, r := range b.Remediation {
				fmt.Printf("  remediation: %s\n", r)
			}
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("persisted output for %s (judge %s)\n", out.PlannerRunID, out.JudgeRunID)
		return nil

	case "hreg":
		if len(args) < 3 {
			return fmt.Errorf("usage: hreg <id> <owner> <rule text>")
		}
		rec, err := registry.Register(args[0], strings.Join(args[2:], " "), args[1])
		if err != nil {
			return err
		}
		fmt.Printf("heuristic %s registered at stage %s\n", rec.HeuristicID, rec.Stage)
		return nil

	case "hev":
		if len(args) != 3 {
			return fmt.Errorf("usage: hev <id> <evidence_count> <success_rate>")
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("evidence count: %v", err)
		}
		rate, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("success rate: %v", err)
		}
		rec, err := registry.UpdateEvidence(args[0], count, rate)
		if err != nil {
			return err
		}
		fmt.Printf("heuristic %s now at stage %s (count=%d rate=%.2f)\n", rec.HeuristicID, rec.Stage, rec.EvidenceCount, rec.SuccessRate)
		return nil

	case "hpromote", "hactivate", "hdeprecate":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <id>", cmd)
		}
		var rec heuristics.Record
		var err error
		switch cmd {
		case "hpromote":
			rec, err = registry.Promote(args[0])
		case "hactivate":
			rec, err = registry.Activate(args[0])
		case "hdeprecate":
			rec, err = registry.Deprecate(args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("heuristic %s now at stage %s\n", rec.HeuristicID, rec.Stage)
		return nil

	case "hcollide":
		if len(args) != 1 {
			return fmt.Errorf("usage: hcollide <id>")
		}
		collisions, err := registry.DetectCollisions(args[0])
		if err != nil {
			return err
		}
		if len(collisions) == 0 {
			fmt.Println("no collisions")
			return nil
		}
		for _, c := range collisions {
			fmt.Printf("conflicts with %s (shared: %s)\n", c.ConflictsWith, strings.Join(c.OverlapTerms, ", "))
		}
		return nil

	case "candidates":
		for _, rec := range registry.ListCandidates() {
			fmt.Printf("%-20s %-10s count=%d rate=%.2f\n", rec.HeuristicID, rec.Stage, rec.EvidenceCount, rec.SuccessRate)
		}
		return nil

	case "snapshot":
		snap := registry.GovernanceSnapshot()
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil

	case "prov":
		if len(args) < 6 {
			return fmt.Errorf("usage: prov <target_type> <target_id> <source_artifact_id> <sha256> <start> <end> [quote]")
		}
		start, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("start offset: %v", err)
		}
		end, err := strconv.Atoi(args[5])
		if err != nil {
			return fmt.Errorf("end offset: %v", err)
		}
		rec := provenance.Record{
			SourceArtifactID: args[2],
			SourceHash:       args[3],
			ExtractorID:      "governor-cli",
			Spans: []provenance.EvidenceSpan{{
				ArtifactID:  args[2],
				StartOffset: start,
				EndOffset:   end,
				Quote:       strings.Join(args[6:], " "),
			}},
		}
		id, err := store.RecordProvenance(rec, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("provenance %s linked to %s/%s\n", id, args[0], args[1])
		return nil

	case "provshow":
		if len(args) != 2 {
			return fmt.Errorf("usage: provshow <target_type> <target_id>")
		}
		rec, err := store.ProvenanceForArtifact(args[0], args[1])
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("no provenance linked")
			return nil
		}
		fmt.Printf("source=%s extractor=%s spans=%d hash=%s\n", rec.SourceArtifactID, rec.ExtractorID, len(rec.Spans), rec.SourceHash)
		for _, s := range rec.Spans {
			fmt.Printf("  [%d..%d] %s\n", s.StartOffset, s.EndOffset, s.Quote)
		}
		return nil

	case "provdrop":
		if len(args) != 2 {
			return fmt.Errorf("usage: provdrop <target_type> <target_id>")
		}
		n, err := store.DeleteLinksForTarget(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d link(s)\n", n)
		return nil

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func printHelp() {
	fmt.Println(`commands:
  ruleset <name> <key1,key2,...>                       create a ruleset version
  activate <version>                                   activate a ruleset version
  plan <run_id> <objective_id> <artifact_id> <json>    register a planner run
  judge <run_id>                                       judge a planner run
  persist <run_id> <json>                              persist through the gate
  hreg <id> <owner> <rule text>                        register a heuristic
  hev <id> <count> <rate>                              update heuristic evidence
  hpromote | hactivate | hdeprecate <id>               heuristic lifecycle
  hcollide <id>                                        detect rule-text collisions
  candidates                                           list undecided heuristics
  snapshot                                             governance snapshot (JSON)
  prov <type> <id> <source> <sha256> <start> <end>     record provenance
  provshow <type> <id>                                 show linked provenance
  provdrop <type> <id>                                 delete provenance links`)
}

// #endregion dispatch

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
