package router

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/internal/cache"
	"github.com/flowsync-hq/flowsync/internal/http/handler"
	"github.com/flowsync-hq/flowsync/internal/http/handler/webhook"
	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	"github.com/flowsync-hq/flowsync/internal/realtime"
	"github.com/flowsync-hq/flowsync/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services, tiered *cache.TieredCache, hub *realtime.Hub, cfg config.Config) {
	router.GET("/health", handler.Health(tiered, hub))

	auth := services.Auth()

	authHandler := handler.NewAuthHandler(auth, cfg.Session, cfg.FrontendURL)
	AuthRouter(router.Group("/auth"), authHandler, auth, cfg.Session.CookieName)

	webhookHandler := webhook.NewGitHubWebhookHandler(services.Webhooks())
	WebhookRouter(router.Group("/webhooks"), webhookHandler)

	realtimeHandler := handler.NewRealtimeHandler(hub, auth, cfg.AllowedOrigins, cfg.Session.CookieName)
	router.GET("/ws", realtimeHandler.Handle)

	api := router.Group("/api")
	api.Use(middleware.RequireSession(auth, cfg.Session.CookieName))
	{
		prHandler := handler.NewPullRequestHandler(services.PullRequests(), auth)
		PullRequestRouter(api.Group("/pull-requests"), prHandler)

		issueHandler := handler.NewIssueHandler(services.Issues(), auth)
		IssueRouter(api.Group("/issues"), issueHandler)

		cacheHandler := handler.NewCacheHandler(tiered, hub)
		CacheRouter(api.Group("/cache"), cacheHandler, webhookHandler)
	}
}
