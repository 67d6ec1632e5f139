package api

import (
	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v5"
	"github.com/safar/store-mcp/internal/metrics"
	"github.com/safar/store-mcp/internal/tools"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP surface: the tool endpoints under /api/v1 plus
// /health and /metrics. h may be nil, in which case /health is not served.
func NewRouter(d *tools.Dispatcher, h *health.Health, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger), Recovery(logger), metrics.Middleware())

	if h != nil {
		router.GET("/health", gin.WrapH(h.Handler()))
	}
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	toolHandler := NewToolHandler(d, logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tools", toolHandler.ListTools)
		v1.POST("/tools/:name", toolHandler.CallTool)
	}

	return router
}
