package router

import (
	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/handler"
)

func MemoryRouter(rg *gin.RouterGroup, h *handler.MemoryHandler) {
	rg.GET("", h.Recall)
}
