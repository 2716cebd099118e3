package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	"github.com/flowsync-hq/flowsync/internal/service"
)

type IssueHandler struct {
	issues service.IssueService
	auth   service.AuthService
}

func NewIssueHandler(issues service.IssueService, auth service.AuthService) *IssueHandler {
	return &IssueHandler{issues: issues, auth: auth}
}

func (h *IssueHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.SessionUser(c)

	repos := splitRepos(c.Query("repos"))
	if len(repos) == 0 {
		connected, err := h.auth.ConnectedRepos(ctx, user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load connected repositories", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load repositories"})
			return
		}
		repos = connected
	}

	list, err := h.issues.List(ctx, accessToken(c), repos, c.Query("state"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list issues", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch issues"})
		return
	}

	c.JSON(http.StatusOK, list)
}
