// Package webhook holds the HTTP-facing side of webhook ingestion. The
// handler's contract with GitHub is deliberately narrow: a delivery is
// rejected only for a bad signature; every other problem is acknowledged
// with 200 so GitHub does not retry what retrying cannot fix.
package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/service"
	"github.com/flowsync-hq/flowsync/internal/webhook"
)

// maxPayload bounds webhook bodies. GitHub caps payloads at 25 MB.
const maxPayload = 25 << 20

type GitHubWebhookHandler struct {
	webhooks service.WebhookService
}

func NewGitHubWebhookHandler(webhooks service.WebhookService) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{webhooks: webhooks}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	event := c.GetHeader("X-GitHub-Event")
	if event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-GitHub-Event header"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := h.webhooks.Process(ctx, service.WebhookParams{
		Event:      event,
		DeliveryID: c.GetHeader("X-GitHub-Delivery"),
		Signature:  c.GetHeader("X-Hub-Signature-256"),
		Payload:    body,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrBadSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		// Process only errors on bad signatures today; anything else is a
		// soft failure already reflected in the result.
		slog.ErrorContext(ctx, "webhook processing returned unexpected error", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"processed": result.Processed,
	})
}

// ListDeliveries returns the most recent audit-log rows.
func (h *GitHubWebhookHandler) ListDeliveries(c *gin.Context) {
	logs, err := h.webhooks.RecentDeliveries(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deliveries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": logs})
}
