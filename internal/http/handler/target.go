package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/dto"
	"rankwise.app/analyst/internal/service"
)

type TargetHandler struct {
	targets service.TargetService
}

func NewTargetHandler(targets service.TargetService) *TargetHandler {
	return &TargetHandler{targets: targets}
}

func (h *TargetHandler) Get(c *gin.Context) {
	var q dto.TargetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	target, err := h.targets.Get(c.Request.Context(), q.Key)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTargetResponse(target))
}

func (h *TargetHandler) Snapshots(c *gin.Context) {
	var q dto.TargetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	snapshots, err := h.targets.Snapshots(c.Request.Context(), q.Key, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSnapshotResponses(snapshots))
}

func (h *TargetHandler) Keywords(c *gin.Context) {
	var q dto.TargetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	records, err := h.targets.Keywords(c.Request.Context(), q.Key)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToKeywordResponses(records))
}
