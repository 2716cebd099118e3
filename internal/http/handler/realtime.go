package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/cache"
	"github.com/flowsync-hq/flowsync/internal/realtime"
	"github.com/flowsync-hq/flowsync/internal/service"
)

// wsRequest is what clients send over the socket.
type wsRequest struct {
	Type       string `json:"type"`
	Repository string `json:"repository,omitempty"`
	UserID     string `json:"userId,omitempty"`
}

// RealtimeHandler upgrades GET /ws and relays subscription requests to the
// hub. Every connection starts on the global topic; a valid session cookie
// additionally joins the user's personal topic.
type RealtimeHandler struct {
	hub        *realtime.Hub
	auth       service.AuthService
	origins    []string
	cookieName string
}

func NewRealtimeHandler(hub *realtime.Hub, auth service.AuthService, origins []string, cookieName string) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, auth: auth, origins: origins, cookieName: cookieName}
}

func (h *RealtimeHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(ctx, conn)
	defer func() {
		h.hub.Disconnect(client)
		client.Close()
	}()

	h.hub.Subscribe(client, realtime.GlobalTopic)

	var sessionUserID string
	if token, err := c.Cookie(h.cookieName); err == nil && token != "" {
		if userID, err := h.auth.VerifySession(token); err == nil {
			sessionUserID = userID
			h.hub.Subscribe(client, realtime.UserTopic(userID))
		}
	}

	h.readLoop(ctx, conn, client, sessionUserID)
}

// readLoop blocks until the peer goes away, applying subscription changes as
// they arrive. Unknown message types are ignored so older frontends keep
// working.
func (h *RealtimeHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Client, sessionUserID string) {
	for {
		var req wsRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			var closeErr websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				slog.DebugContext(ctx, "websocket read ended", "error", err)
			}
			return
		}

		switch req.Type {
		case "subscribe:repository":
			if req.Repository != "" {
				h.hub.Subscribe(client, realtime.RepoTopic(req.Repository))
			}
		case "unsubscribe:repository":
			if req.Repository != "" {
				h.hub.Unsubscribe(client, realtime.RepoTopic(req.Repository))
			}
		case "subscribe:user":
			// Only the authenticated user's own topic; anything else is ignored.
			if req.UserID != "" && req.UserID == sessionUserID {
				h.hub.Subscribe(client, realtime.UserTopic(req.UserID))
			}
		case "ping":
			client.Send(realtime.Message{Event: "pong"})
		}
	}
}

// Health reports liveness plus a few cheap process gauges.
func Health(tiered *cache.TieredCache, hub *realtime.Hub) gin.HandlerFunc {
	start := time.Now()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(start).Round(time.Second).String(),
			"connections": hub.Stats().Connections,
			"cache":       tiered.Stats(),
		})
	}
}
