package persist

import "time"

// #region persisted-output

// PersistedOutput is a planner output that cleared the persistence gate.
// Created only when the associated judge run's verdict is PASS.
type PersistedOutput struct {
	PlannerRunID string
	JudgeRunID   string
	ArtifactID   string
	ObjectiveID  string
	PersistedAt  time.Time
	Output       map[string]any
}

// #endregion

// #region blocked-artifact

// BlockedArtifact is the trace left behind when the gate refuses a write.
type BlockedArtifact struct {
	PlannerRunID  string
	JudgeRunID    string
	BlockedAt     time.Time
	Reason        string
	Reasons       []string
	Remediation   []string
	OutputPreview string
}

// #endregion

// #region gate-config

// GateConfig holds persistence gate tuning.
type GateConfig struct {
	PreviewLimit int // max bytes of rejected output captured in a blocked trace
}

// DefaultGateConfig returns the defaults used by the binaries.
func DefaultGateConfig() GateConfig {
	return GateConfig{PreviewLimit: 256}
}

// #endregion
