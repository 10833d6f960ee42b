package dto

import (
	"time"

	"rankwise.app/analyst/internal/model"
)

type MemoryQuery struct {
	Context string `form:"context" binding:"max=2048"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type MemoryEntryResponse struct {
	ID          int64              `json:"id,string"`
	Context     string             `json:"context"`
	Action      string             `json:"action"`
	Observation model.Observation  `json:"observation"`
	Result      model.MemoryResult `json:"result"`
	Timestamp   time.Time          `json:"timestamp"`
	Importance  float64            `json:"importance"`
}

func ToMemoryResponses(entries []model.MemoryEntry) []MemoryEntryResponse {
	out := make([]MemoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = MemoryEntryResponse{
			ID:          e.ID,
			Context:     e.Context,
			Action:      e.Action,
			Observation: e.Observation,
			Result:      e.Result,
			Timestamp:   e.Timestamp,
			Importance:  e.Importance,
		}
	}
	return out
}
