package model

import "time"

const MemoryActionAnalyze = "analyze"

// Observation is what a run saw. Findings are short machine keys such as
// "missing_meta_description".
type Observation struct {
	Categories []Category    `json:"categories"`
	Findings   []string      `json:"findings"`
	Warnings   []WarningKind `json:"warnings,omitempty"`
}

// MemoryResult summarizes the outcome of the action.
type MemoryResult struct {
	Status          AnalysisStatus `json:"status"`
	SnapshotID      int64          `json:"snapshot_id"`
	Recommendations int            `json:"recommendations"`
}

type MemoryEntry struct {
	ID             int64        `json:"id"`
	Context        string       `json:"context"`
	Observation    Observation  `json:"observation"`
	Action         string       `json:"action"`
	Result         MemoryResult `json:"result"`
	Timestamp      time.Time    `json:"timestamp"`
	BaseImportance float64      `json:"base_importance"`
	Importance     float64      `json:"importance"`
}
