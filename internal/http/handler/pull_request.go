package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/http/dto"
	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	"github.com/flowsync-hq/flowsync/internal/service"
)

type PullRequestHandler struct {
	pullRequests service.PullRequestService
	auth         service.AuthService
}

func NewPullRequestHandler(pullRequests service.PullRequestService, auth service.AuthService) *PullRequestHandler {
	return &PullRequestHandler{pullRequests: pullRequests, auth: auth}
}

// List aggregates pull requests across the requested repositories. With no
// repos query parameter it falls back to the user's connected repositories.
func (h *PullRequestHandler) List(c *gin.Context) {
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

	list, err := h.pullRequests.List(ctx, accessToken(c), repos, c.Query("state"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list pull requests", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch pull requests"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// UpdateState opens or closes a pull request.
func (h *PullRequestHandler) UpdateState(c *gin.Context) {
	ctx := c.Request.Context()

	repo, number, ok := repoAndNumber(c)
	if !ok {
		return
	}

	var req dto.UpdatePullRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pr, err := h.pullRequests.UpdateState(ctx, accessToken(c), repo, number, req.State)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update pull request", "repository", repo, "number", number, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to update pull request"})
		return
	}

	c.JSON(http.StatusOK, pr)
}

// Comment posts a comment on a pull request.
func (h *PullRequestHandler) Comment(c *gin.Context) {
	ctx := c.Request.Context()

	repo, number, ok := repoAndNumber(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.pullRequests.Comment(ctx, accessToken(c), repo, number, req.Body); err != nil {
		slog.ErrorContext(ctx, "failed to comment on pull request", "repository", repo, "number", number, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to post comment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"posted": true})
}

// repoAndNumber pulls owner/name and the PR or issue number out of the path.
func repoAndNumber(c *gin.Context) (string, int, bool) {
	repo := c.Param("owner") + "/" + c.Param("repo")
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid number"})
		return "", 0, false
	}
	return repo, number, true
}

func splitRepos(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	repos := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			repos = append(repos, trimmed)
		}
	}
	return repos
}

func accessToken(c *gin.Context) string {
	user := middleware.SessionUser(c)
	if user == nil || user.AccessToken == nil {
		return ""
	}
	return *user.AccessToken
}
