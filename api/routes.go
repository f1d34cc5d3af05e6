package api

import (
	chatHandlers "openrag/api/handlers/chat"
	documentHandlers "openrag/api/handlers/documents"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 聚合全部 HTTP 处理器
type Handlers struct {
	Documents *documentHandlers.Handler
	Chat      *chatHandlers.Handler
}

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/healthz", HealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/documents", h.Documents.Upload)
		api.GET("/documents", h.Documents.List)
		api.DELETE("/documents/:filename", h.Documents.Delete)
		api.GET("/jobs/:id", h.Documents.JobStatus)

		api.POST("/chat", h.Chat.Ask)
	}
}
