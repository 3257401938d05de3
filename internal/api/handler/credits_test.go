package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/testutil"
)

func creditsRouter(env *testEnv) *gin.Engine {
	h := NewCreditsHandler(env.ledger, env.profiles, env.cfg.Bot.WebhookSecret)
	r := gin.New()
	r.POST("/api/credits/consume", h.Consume)
	r.POST("/api/credits/refund", h.Refund)
	authed := r.Group("/api", middleware.Auth(env.cfg.JWT.Secret, env.cfg.JWT.CookieName))
	authed.GET("/credits", h.Balance)
	authed.GET("/credits/history", h.History)
	return r
}

func TestCreditsHandler_Consume(t *testing.T) {
	env := newTestEnv(t)
	r := creditsRouter(env)
	p := testutil.TestProfile(t, env.db, testutil.WithCredits(6), testutil.WithTelegram(1001))

	w := performRequest(r, http.MethodPost, "/api/credits/consume", map[string]interface{}{
		"external_id": 1001, "operation": "consensus", "shared_secret": testBotSecret,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := parseResponse(t, w)
	assert.Equal(t, float64(1), body["remaining"])
	assert.Equal(t, float64(5), body["cost"])

	w = performRequest(r, http.MethodPost, "/api/credits/consume", map[string]interface{}{
		"external_id": 1001, "operation": "consensus", "shared_secret": testBotSecret,
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	body = parseResponse(t, w)
	assert.Equal(t, "Insufficient credits", body["error"])
	assert.Equal(t, float64(5), body["cost"])

	assert.Equal(t, 1, env.reload(t, p.ID).Credits)
	assert.Equal(t, int64(1), testutil.CountRows(t, env.db, &model.Transaction{}, "user_id = ? AND kind = ?", p.ID, model.TxConsumption))
}

func TestCreditsHandler_Consume_Errors(t *testing.T) {
	env := newTestEnv(t)
	r := creditsRouter(env)
	testutil.TestProfile(t, env.db, testutil.WithTelegram(1001))

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"bad secret", map[string]interface{}{"external_id": 1001, "operation": "fast", "shared_secret": "x"}, http.StatusUnauthorized},
		{"no id", map[string]interface{}{"operation": "fast", "shared_secret": testBotSecret}, http.StatusBadRequest},
		{"unlinked", map[string]interface{}{"external_id": 5, "operation": "fast", "shared_secret": testBotSecret}, http.StatusNotFound},
		{"unknown op", map[string]interface{}{"external_id": 1001, "operation": "teleport", "shared_secret": testBotSecret}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, http.MethodPost, "/api/credits/consume", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreditsHandler_Refund(t *testing.T) {
	env := newTestEnv(t)
	r := creditsRouter(env)
	p := testutil.TestProfile(t, env.db, testutil.WithCredits(10), testutil.WithTelegram(2002))

	w := performRequest(r, http.MethodPost, "/api/credits/refund", map[string]interface{}{
		"external_id": 2002, "credits": 5, "reason": "Fallo del consejo", "shared_secret": testBotSecret,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(15), parseResponse(t, w)["remaining"])
	assert.Equal(t, 15, env.reload(t, p.ID).Credits)

	w = performRequest(r, http.MethodPost, "/api/credits/refund", map[string]interface{}{
		"external_id": 2002, "credits": 0, "shared_secret": testBotSecret,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditsHandler_BalanceAndHistory(t *testing.T) {
	env := newTestEnv(t)
	r := creditsRouter(env)
	p := testutil.TestProfile(t, env.db, testutil.WithCredits(45), testutil.WithPlan(model.PlanPro))
	testutil.TestTransaction(t, env.db, p.ID, model.TxBonus, 50)
	testutil.TestTransaction(t, env.db, p.ID, model.TxConsumption, -5)

	w := performRequest(r, http.MethodGet, "/api/credits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodGet, "/api/credits", nil, env.session(t, p))
	require.Equal(t, http.StatusOK, w.Code)
	body := parseResponse(t, w)
	assert.Equal(t, float64(45), body["credits"])
	assert.Equal(t, "pro", body["plan"])

	w = performRequest(r, http.MethodGet, "/api/credits/history?page=1&page_size=1", nil, env.session(t, p))
	require.Equal(t, http.StatusOK, w.Code)
	body = parseResponse(t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["items"], 1)
}
