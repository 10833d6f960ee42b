package router

import (
	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/handler"
)

func AnalysisRouter(rg *gin.RouterGroup, h *handler.AnalysisHandler) {
	rg.POST("", h.Analyze)
	rg.POST("/async", h.Enqueue)
}
