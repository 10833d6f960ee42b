package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/dto"
	"rankwise.app/analyst/internal/service"
)

type MemoryHandler struct {
	memory service.MemoryService
}

func NewMemoryHandler(memory service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

func (h *MemoryHandler) Recall(c *gin.Context) {
	var q dto.MemoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	entries := h.memory.Recall(c.Request.Context(), q.Context, q.Limit)
	c.JSON(http.StatusOK, dto.ToMemoryResponses(entries))
}
