package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/dto"
	"rankwise.app/analyst/internal/http/middleware"
	"rankwise.app/analyst/internal/service"
)

type AnalysisHandler struct {
	analyses service.AnalysisService
}

func NewAnalysisHandler(analyses service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses}
}

// Analyze runs an analysis and returns the result document. Degraded results
// are still 200s.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.analyses.Analyze(c.Request.Context(), req.Target, req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) Enqueue(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	enqueued, err := h.analyses.Enqueue(c.Request.Context(), req.Target, req.Kind, c.GetString(middleware.TraceIDKey))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToEnqueueResponse(enqueued))
}
