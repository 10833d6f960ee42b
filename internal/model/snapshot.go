package model

import (
	"encoding/json"
	"time"
)

type AnalysisStatus string

const (
	StatusOK       AnalysisStatus = "ok"
	StatusDegraded AnalysisStatus = "degraded"
)

type WarningKind string

const (
	WarningProviderUnavailable  WarningKind = "provider_unavailable"
	WarningProviderMissing      WarningKind = "provider_not_configured"
	WarningSynthesisMalformed   WarningKind = "synthesis_malformed"
	WarningSynthesisUnavailable WarningKind = "synthesis_unavailable"
	WarningMemoryUnavailable    WarningKind = "memory_unavailable"
)

// Warning annotates a degraded result with what went missing.
type Warning struct {
	Category Category    `json:"category,omitempty"`
	Kind     WarningKind `json:"kind"`
	Reason   string      `json:"reason"`
}

// Snapshot is one immutable analysis of a target.
type Snapshot struct {
	ID              int64                        `json:"id"`
	TargetID        int64                        `json:"target_id"`
	AnalyzedAt      time.Time                    `json:"analyzed_at"`
	Status          AnalysisStatus               `json:"status"`
	Metrics         map[Category]json.RawMessage `json:"metrics"`
	Recommendations RecommendationSet            `json:"recommendations"`
	Warnings        []Warning                    `json:"warnings"`
}
