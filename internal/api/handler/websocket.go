package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/pkg/pubsub"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/pkg/ws"
	"github.com/agentpilot/web/internal/service"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type WebSocketHandler struct {
	hub      *ws.Hub
	profiles *service.ProfileService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts same-host upgrades plus the listed origins
func NewWebSocketHandler(hub *ws.Hub, profiles *service.ProfileService, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:      hub,
		profiles: profiles,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed["*"] || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// Handle streams balance updates to the signed-in user
// GET /ws
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "Not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("ws: upgrade failed")
		return
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
	}
	h.hub.Register(client)

	// current balance first so the page is never stale after a reconnect
	if profile, err := h.profiles.Get(c.Request.Context(), userID); err == nil {
		_ = service.PushBalance(h.hub, &pubsub.BalanceMessage{
			Type:    pubsub.TypeBalanceUpdated,
			UserID:  profile.ID,
			Credits: profile.Credits,
			Plan:    profile.Plan,
		})
	}

	done := make(chan struct{})
	go h.keepAlive(client, done)

	go func() {
		defer func() {
			close(done)
			h.hub.Unregister(client)
			_ = conn.Close()
		}()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) keepAlive(client *ws.Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}
