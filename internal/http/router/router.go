package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/handler"
	"rankwise.app/analyst/internal/http/middleware"
	"rankwise.app/analyst/internal/service"
)

type RouterConfig struct {
	TraceHeaderName string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TraceID(cfg.TraceHeaderName))
	{
		analysisHandler := handler.NewAnalysisHandler(services.Analyses())
		AnalysisRouter(v1.Group("/analyses"), analysisHandler)

		targetHandler := handler.NewTargetHandler(services.Targets())
		TargetRouter(v1.Group("/targets"), targetHandler)

		memoryHandler := handler.NewMemoryHandler(services.Memory())
		MemoryRouter(v1.Group("/memory"), memoryHandler)
	}
}
