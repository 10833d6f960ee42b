package model

import (
	"encoding/json"
	"time"
)

// AnalysisResult is what an analysis returns to its caller.
type AnalysisResult struct {
	TargetKey       string
	Kind            TargetKind
	Status          AnalysisStatus
	Warnings        []Warning
	SnapshotID      int64
	AnalyzedAt      time.Time
	Metrics         map[Category]json.RawMessage
	Recommendations RecommendationSet
}

var emptyObject = json.RawMessage(`{}`)

// MetricsFor returns the category's metrics, or {} when none were collected.
func (r AnalysisResult) MetricsFor(c Category) json.RawMessage {
	if m, ok := r.Metrics[c]; ok && len(m) > 0 {
		return m
	}
	return emptyObject
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []Warning{}
	}

	doc := struct {
		TargetKey           string            `json:"target_key"`
		Kind                TargetKind        `json:"kind"`
		Status              AnalysisStatus    `json:"status"`
		Warnings            []Warning         `json:"warnings"`
		SnapshotID          int64             `json:"snapshot_id"`
		AnalyzedAt          time.Time         `json:"analyzed_at"`
		TechnicalAnalysis   json.RawMessage   `json:"technical_analysis"`
		KeywordAnalysis     json.RawMessage   `json:"keyword_analysis"`
		CompetitionAnalysis json.RawMessage   `json:"competition_analysis"`
		ContentAnalysis     json.RawMessage   `json:"content_analysis,omitempty"`
		Recommendations     RecommendationSet `json:"recommendations"`
	}{
		TargetKey:           r.TargetKey,
		Kind:                r.Kind,
		Status:              r.Status,
		Warnings:            warnings,
		SnapshotID:          r.SnapshotID,
		AnalyzedAt:          r.AnalyzedAt,
		TechnicalAnalysis:   r.MetricsFor(CategoryTechnical),
		KeywordAnalysis:     r.MetricsFor(CategoryKeyword),
		CompetitionAnalysis: r.MetricsFor(CategoryCompetition),
		Recommendations:     r.Recommendations,
	}
	if r.Kind == TargetKindNiche {
		doc.ContentAnalysis = r.MetricsFor(CategoryContent)
	}

	return json.Marshal(doc)
}
