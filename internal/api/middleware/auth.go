package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentpilot/web/internal/pkg/jwt"
	"github.com/agentpilot/web/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	EmailKey  = "userEmail"
)

// tokenFrom session cookie first, then a Bearer header
func tokenFrom(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}

	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

func identify(c *gin.Context, secret, cookieName string) bool {
	token := tokenFrom(c, cookieName)
	if token == "" {
		return false
	}
	claims, err := jwt.ParseToken(token, secret)
	if err != nil {
		return false
	}
	c.Set(UserIDKey, claims.UserID)
	c.Set(EmailKey, claims.Email)
	return true
}

// Auth rejects API calls without a valid session
func Auth(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identify(c, secret, cookieName) {
			response.AuthError(c, "Not authenticated")
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when it can, never rejects
func OptionalAuth(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identify(c, secret, cookieName)
		c.Next()
	}
}

// PageAuth sends anonymous visitors to the login page, keeping the destination
func PageAuth(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identify(c, secret, cookieName) {
			target := "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID empty when the request carries no valid session
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}
