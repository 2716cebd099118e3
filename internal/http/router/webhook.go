package router

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/handler/webhook"
)

func WebhookRouter(rg *gin.RouterGroup, h *webhook.GitHubWebhookHandler) {
	rg.POST("/github", h.HandleEvent)
}
