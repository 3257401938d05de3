package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpilot/web/internal/pkg/jwt"
	"github.com/agentpilot/web/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testJWTSecret  = "test-secret-key-for-middleware"
	testCookieName = "ap_session"
)

func parseError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func testToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := jwt.GenerateToken(userID, "user@example.com", testJWTSecret, 24)
	require.NoError(t, err)
	return token
}

func authRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "ok": ok, "email": GetEmail(c)})
	})
	return router
}

func TestAuth_BearerHeader(t *testing.T) {
	router := authRouter(Auth(testJWTSecret, testCookieName))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-123"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"user-123"`)
	assert.Contains(t, w.Body.String(), `"email":"user@example.com"`)
}

func TestAuth_SessionCookie(t *testing.T) {
	router := authRouter(Auth(testJWTSecret, testCookieName))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: testToken(t, "user-cookie")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"user-cookie"`)
}

func TestAuth_Rejections(t *testing.T) {
	router := authRouter(Auth(testJWTSecret, testCookieName))

	cases := map[string]string{
		"missing":   "",
		"no bearer": testToken(t, "user-1"),
		"garbage":   "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Not authenticated", parseError(t, w).Error)
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	router := authRouter(Auth("another-secret", testCookieName))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-1"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	router := authRouter(OptionalAuth(testJWTSecret, testCookieName))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-9"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestPageAuth_RedirectsToLogin(t *testing.T) {
	router := gin.New()
	router.GET("/dashboard/creditos", PageAuth(testJWTSecret, testCookieName), func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})

	req := httptest.NewRequest("GET", "/dashboard/creditos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fdashboard%2Fcreditos", w.Header().Get("Location"))

	req = httptest.NewRequest("GET", "/dashboard/creditos", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: testToken(t, "user-1")})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
