package dto

import (
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/service"
)

type AnalyzeRequest struct {
	Target string           `json:"target" binding:"required,max=2048"`
	Kind   model.TargetKind `json:"kind,omitempty" binding:"omitempty,oneof=website niche"`
}

type EnqueueResponse struct {
	TargetKey string           `json:"target_key"`
	Kind      model.TargetKind `json:"kind"`
	MessageID string           `json:"message_id"`
	Status    string           `json:"status"`
}

func ToEnqueueResponse(e *service.Enqueued) *EnqueueResponse {
	return &EnqueueResponse{
		TargetKey: e.TargetKey,
		Kind:      e.Kind,
		MessageID: e.MessageID,
		Status:    "queued",
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
