package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/cache"
	"github.com/flowsync-hq/flowsync/internal/realtime"
)

// CacheHandler exposes the cache admin surface: stats and manual
// invalidation.
type CacheHandler struct {
	cache *cache.TieredCache
	hub   *realtime.Hub
}

func NewCacheHandler(tiered *cache.TieredCache, hub *realtime.Hub) *CacheHandler {
	return &CacheHandler{cache: tiered, hub: hub}
}

func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":    h.cache.Stats(),
		"realtime": h.hub.Stats(),
	})
}

// Clear removes cached entries matching the pattern query parameter,
// defaulting to everything.
func (h *CacheHandler) Clear(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")

	if err := h.cache.Clear(c.Request.Context(), pattern); err != nil {
		slog.ErrorContext(c.Request.Context(), "manual cache clear failed", "pattern", pattern, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": pattern})
}
