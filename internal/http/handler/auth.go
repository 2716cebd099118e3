package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/internal/http/dto"
	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	"github.com/flowsync-hq/flowsync/internal/service"
)

const stateCookieName = "fs_oauth_state"

type AuthHandler struct {
	auth        service.AuthService
	session     config.SessionConfig
	frontendURL string
}

func NewAuthHandler(auth service.AuthService, session config.SessionConfig, frontendURL string) *AuthHandler {
	return &AuthHandler{auth: auth, session: session, frontendURL: frontendURL}
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := generateState()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate oauth state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	authURL, err := h.auth.AuthorizeURL(state)
	if err != nil {
		if errors.Is(err, service.ErrOAuthDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "github oauth is not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	c.SetCookie(stateCookieName, state, 600, "/", "", h.session.Secure, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		slog.WarnContext(ctx, "oauth error from github", "error", errParam, "description", c.Query("error_description"))
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?auth_error="+errParam)
		return
	}

	storedState, err := c.Cookie(stateCookieName)
	if err != nil || c.Query("state") != storedState {
		slog.WarnContext(ctx, "oauth state mismatch")
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?auth_error=invalid_state")
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", h.session.Secure, true)

	token, user, err := h.auth.HandleCallback(ctx, c.Query("code"))
	if err != nil {
		slog.ErrorContext(ctx, "oauth callback failed", "error", err)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?auth_error=callback_failed")
		return
	}

	c.SetCookie(h.session.CookieName, token, int(h.session.TTL.Seconds()), "/", "", h.session.Secure, true)

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID, "username", user.Username)
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/dashboard")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.SessionUser(c))
}

func (h *AuthHandler) GetRepos(c *gin.Context) {
	user := middleware.SessionUser(c)

	repos, err := h.auth.ConnectedRepos(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list repositories"})
		return
	}
	if repos == nil {
		repos = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"repos": repos})
}

func (h *AuthHandler) SetRepos(c *gin.Context) {
	user := middleware.SessionUser(c)

	var req dto.SetConnectedReposRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.SetConnectedRepos(c.Request.Context(), user.ID, req.Repos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"repos": req.Repos})
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
