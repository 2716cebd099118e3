package router

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/handler"
	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	"github.com/flowsync-hq/flowsync/internal/service"
)

func AuthRouter(rg *gin.RouterGroup, h *handler.AuthHandler, auth service.AuthService, cookieName string) {
	rg.GET("/github", h.Login)
	rg.GET("/github/callback", h.Callback)
	rg.POST("/logout", h.Logout)

	authed := rg.Group("")
	authed.Use(middleware.RequireSession(auth, cookieName))
	authed.GET("/me", h.Me)
	authed.GET("/repos", h.GetRepos)
	authed.PUT("/repos", h.SetRepos)
}
