package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/service"
)

const authFailedRedirect = "/login?error=auth_failed"

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// Login redirects to the identity provider
// GET /auth/login?next=
func (h *AuthHandler) Login(c *gin.Context) {
	url, err := h.authService.LoginURL(c.Request.Context(), c.Query("next"))
	if err != nil {
		log.Error().Err(err).Msg("auth: build login url failed")
		c.Redirect(http.StatusFound, authFailedRedirect)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback completes the provider round trip
// GET /callback?code=&state=&next=
func (h *AuthHandler) Callback(c *gin.Context) {
	session, err := h.authService.Callback(c.Request.Context(), c.Query("code"), c.Query("state"), c.Query("next"))
	if err != nil {
		log.Warn().Err(err).Msg("auth: callback failed")
		c.Redirect(http.StatusFound, authFailedRedirect)
		return
	}

	h.setSession(c, session.Token, h.cfg.JWT.ExpireHours*3600)
	c.Redirect(http.StatusFound, session.Redirect)
}

// Logout GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSession(c, "", -1)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) setSession(c *gin.Context, token string, maxAge int) {
	secure := strings.HasPrefix(h.cfg.App.PublicURL, "https://")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, token, maxAge, "/", "", secure, true)
}
