package router

import (
	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/handler"
)

// TargetRouter takes the target as ?key= because website keys contain slashes.
func TargetRouter(rg *gin.RouterGroup, h *handler.TargetHandler) {
	rg.GET("", h.Get)
	rg.GET("/snapshots", h.Snapshots)
	rg.GET("/keywords", h.Keywords)
}
