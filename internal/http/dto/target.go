package dto

import (
	"encoding/json"
	"time"

	"rankwise.app/analyst/internal/model"
)

type TargetQuery struct {
	Key   string `form:"key" binding:"required,max=2048"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type TargetResponse struct {
	ID             int64            `json:"id,string"`
	Key            string           `json:"target_key"`
	Kind           model.TargetKind `json:"kind"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAnalyzedAt *time.Time       `json:"last_analyzed_at"`
}

func ToTargetResponse(t *model.Target) *TargetResponse {
	return &TargetResponse{
		ID:             t.ID,
		Key:            t.Key,
		Kind:           t.Kind,
		CreatedAt:      t.CreatedAt,
		LastAnalyzedAt: t.LastAnalyzedAt,
	}
}

type SnapshotResponse struct {
	ID              int64                      `json:"id,string"`
	AnalyzedAt      time.Time                  `json:"analyzed_at"`
	Status          model.AnalysisStatus       `json:"status"`
	Warnings        []model.Warning            `json:"warnings"`
	Metrics         map[string]json.RawMessage `json:"metrics"`
	Recommendations model.RecommendationSet    `json:"recommendations"`
}

func ToSnapshotResponses(snapshots []model.Snapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		metrics := make(map[string]json.RawMessage, len(s.Metrics))
		for c, raw := range s.Metrics {
			metrics[c.ResultKey()] = raw
		}
		warnings := s.Warnings
		if warnings == nil {
			warnings = []model.Warning{}
		}
		out[i] = SnapshotResponse{
			ID:              s.ID,
			AnalyzedAt:      s.AnalyzedAt,
			Status:          s.Status,
			Warnings:        warnings,
			Metrics:         metrics,
			Recommendations: s.Recommendations,
		}
	}
	return out
}

type KeywordResponse struct {
	Keyword      string    `json:"keyword"`
	Position     *int      `json:"position"`
	SearchVolume *int      `json:"search_volume"`
	Difficulty   *float64  `json:"difficulty"`
	LastUpdated  time.Time `json:"last_updated"`
}

func ToKeywordResponses(records []model.KeywordRecord) []KeywordResponse {
	out := make([]KeywordResponse, len(records))
	for i, r := range records {
		out[i] = KeywordResponse{
			Keyword:      r.Keyword,
			Position:     r.Position,
			SearchVolume: r.SearchVolume,
			Difficulty:   r.Difficulty,
			LastUpdated:  r.LastUpdated,
		}
	}
	return out
}
