package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/pkg/pubsub"
	"github.com/agentpilot/web/internal/pkg/ws"
	"github.com/agentpilot/web/internal/service"
	"github.com/agentpilot/web/internal/testutil"
)

func TestWebSocketHandler_PushesBalance(t *testing.T) {
	env := newTestEnv(t)
	hub := ws.NewHub()
	p := testutil.TestProfile(t, env.db, testutil.WithCredits(30))

	h := NewWebSocketHandler(hub, env.profiles, nil)
	r := gin.New()
	r.GET("/ws", middleware.Auth(env.cfg.JWT.Secret, env.cfg.JWT.CookieName), h.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Cookie", env.session(t, p).String())
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	var first struct {
		Type string                `json:"type"`
		Data pubsub.BalanceMessage `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "balance_updated", first.Type)
	assert.Equal(t, 30, first.Data.Credits)

	require.NoError(t, service.PushBalance(hub, &pubsub.BalanceMessage{UserID: p.ID, Credits: 130, Delta: 100}))

	var next struct {
		Type string                `json:"type"`
		Data pubsub.BalanceMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, 130, next.Data.Credits)
	assert.Equal(t, 100, next.Data.Delta)
}

func TestWebSocketHandler_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.TestProfile(t, env.db)

	h := NewWebSocketHandler(ws.NewHub(), env.profiles, []string{"https://agentpilot.test"})
	r := gin.New()
	r.GET("/ws", middleware.Auth(env.cfg.JWT.Secret, env.cfg.JWT.CookieName), h.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{}
	header.Set("Cookie", env.session(t, p).String())
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
