package router

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/handler"
	"github.com/flowsync-hq/flowsync/internal/http/handler/webhook"
)

func CacheRouter(rg *gin.RouterGroup, h *handler.CacheHandler, wh *webhook.GitHubWebhookHandler) {
	rg.GET("/stats", h.Stats)
	rg.DELETE("", h.Clear)
	rg.GET("/deliveries", wh.ListDeliveries)
}
