package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/testutil"
	"github.com/agentpilot/web/internal/web"
)

func pageRouter(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()

	renderer, err := web.New()
	require.NoError(t, err)
	h := NewPageHandler(renderer, env.billing, env.profiles, env.creds, env.cfg)

	secret, cookie := env.cfg.JWT.Secret, env.cfg.JWT.CookieName
	r := gin.New()
	public := r.Group("", middleware.OptionalAuth(secret, cookie))
	public.GET("/", h.Home)
	public.GET("/login", h.Login)
	public.GET("/terminos", h.Terms)
	public.GET("/privacidad", h.Privacy)
	public.GET("/checkout", h.Checkout)
	public.GET("/checkout/success", h.CheckoutSuccess)
	dash := r.Group("/dashboard", middleware.PageAuth(secret, cookie))
	dash.GET("", h.Dashboard)
	dash.GET("/creditos", h.Credits)
	dash.GET("/historial", h.History)
	dash.GET("/historial.pdf", h.HistoryPDF)
	dash.GET("/api-keys", h.APIKeys)
	dash.GET("/perfil", h.Profile)
	return r
}

func getWith(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPageHandler_PublicPages(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)

	for _, path := range []string{"/", "/login", "/terminos", "/privacidad", "/checkout?plan=pro", "/checkout/success?session_id=cs_1"} {
		t.Run(path, func(t *testing.T) {
			w := getWith(r, path)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, w.Body.String(), "Agent Pilot")
		})
	}
}

func TestPageHandler_Home(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)

	body := getWith(r, "/").Body.String()
	assert.Contains(t, body, "Starter")
	assert.Contains(t, body, "29€")
	assert.Contains(t, body, "Consejo de Sabios")
	assert.Contains(t, body, "https://t.me/AgentPilotBot")
}

func TestPageHandler_Login(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)
	p := testutil.TestProfile(t, env.db)

	w := getWith(r, "/login?error=auth_failed")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No se pudo iniciar sesión")

	w = getWith(r, "/login?next=%2Fdashboard%2Fperfil", env.session(t, p))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/perfil", w.Header().Get("Location"))
}

func TestPageHandler_DashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)

	w := getWith(r, "/dashboard/creditos")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fdashboard%2Fcreditos", w.Header().Get("Location"))
}

func TestPageHandler_DashboardPages(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)
	p := testutil.TestProfile(t, env.db, testutil.WithEmail("dash@example.com"), testutil.WithCredits(120), testutil.WithPlan(model.PlanPro))
	testutil.TestTransaction(t, env.db, p.ID, model.TxSubscription, 500)
	testutil.TestTransaction(t, env.db, p.ID, model.TxConsumption, -5)
	cookie := env.session(t, p)

	tests := []struct {
		path string
		want string
	}{
		{"/dashboard", "dash@example.com"},
		{"/dashboard/creditos", "Consejo de Sabios"},
		{"/dashboard/historial", "Suscripción"},
		{"/dashboard/api-keys", "Openai"},
		{"/dashboard/perfil", "Perfil de entrenamiento"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := getWith(r, tt.path, cookie)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Contains(t, w.Body.String(), `id="nav-credits">120<`)
		})
	}
}

func TestPageHandler_HistoryPDF(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)
	p := testutil.TestProfile(t, env.db)
	testutil.TestTransaction(t, env.db, p.ID, model.TxBonus, 50)

	w := getWith(r, "/dashboard/historial.pdf", env.session(t, p))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, len(w.Body.Bytes()) > 4)
	assert.Equal(t, "%PDF", string(w.Body.Bytes()[:4]))
}

func TestPageHandler_StaleSessionLogsOut(t *testing.T) {
	env := newTestEnv(t)
	r := pageRouter(t, env)
	ghost := &model.Profile{ID: "00000000-0000-0000-0000-000000000000", Email: "ghost@example.com"}

	w := getWith(r, "/dashboard", env.session(t, ghost))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/logout", w.Header().Get("Location"))
}

func TestOperationCosts_Sorted(t *testing.T) {
	costs := operationCosts(map[string]int{"consensus": 5, "fast": 1, "custom": 5})
	require.Len(t, costs, 3)
	assert.Equal(t, "Consulta FAST", costs[0].Name)
	assert.Equal(t, "Consejo de Sabios", costs[1].Name)
	assert.Equal(t, "custom", costs[2].Name)
}
