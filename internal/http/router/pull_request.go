package router

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/handler"
)

func PullRequestRouter(rg *gin.RouterGroup, h *handler.PullRequestHandler) {
	rg.GET("", h.List)
	rg.PATCH("/:owner/:repo/:number", h.UpdateState)
	rg.POST("/:owner/:repo/:number/comments", h.Comment)
}

func IssueRouter(rg *gin.RouterGroup, h *handler.IssueHandler) {
	rg.GET("", h.List)
}
