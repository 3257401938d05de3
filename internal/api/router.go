package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/api/handler"
	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/web"
)

// Router holds every handler the HTTP surface needs
type Router struct {
	authHandler       *handler.AuthHandler
	billingHandler    *handler.BillingHandler
	linkHandler       *handler.LinkHandler
	creditsHandler    *handler.CreditsHandler
	credentialHandler *handler.CredentialHandler
	profileHandler    *handler.ProfileHandler
	pageHandler       *handler.PageHandler
	websocketHandler  *handler.WebSocketHandler
	cfg               *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	billingHandler *handler.BillingHandler,
	linkHandler *handler.LinkHandler,
	creditsHandler *handler.CreditsHandler,
	credentialHandler *handler.CredentialHandler,
	profileHandler *handler.ProfileHandler,
	pageHandler *handler.PageHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:       authHandler,
		billingHandler:    billingHandler,
		linkHandler:       linkHandler,
		creditsHandler:    creditsHandler,
		credentialHandler: credentialHandler,
		profileHandler:    profileHandler,
		pageHandler:       pageHandler,
		websocketHandler:  websocketHandler,
		cfg:               cfg,
	}
}

// Setup builds the gin engine with all routes
func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	secret, cookie := r.cfg.JWT.Secret, r.cfg.JWT.CookieName

	engine := gin.New()
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.StaticFS("/static", web.Static())
	if r.cfg.Server.MetricsPath != "" {
		engine.GET(r.cfg.Server.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// session handshake
	engine.GET("/auth/login", r.authHandler.Login)
	engine.GET("/callback", r.authHandler.Callback)
	engine.GET("/logout", r.authHandler.Logout)

	// public pages, the visitor is shown when signed in
	public := engine.Group("")
	public.Use(middleware.OptionalAuth(secret, cookie))
	{
		public.GET("/", r.pageHandler.Home)
		public.GET("/login", r.pageHandler.Login)
		public.GET("/terminos", r.pageHandler.Terms)
		public.GET("/privacidad", r.pageHandler.Privacy)
		public.GET("/checkout", r.pageHandler.Checkout)
		public.GET("/checkout/success", r.pageHandler.CheckoutSuccess)
	}

	dashboard := engine.Group("/dashboard")
	dashboard.Use(middleware.PageAuth(secret, cookie))
	{
		dashboard.GET("", r.pageHandler.Dashboard)
		dashboard.GET("/creditos", r.pageHandler.Credits)
		dashboard.GET("/historial", r.pageHandler.History)
		dashboard.GET("/historial.pdf", r.pageHandler.HistoryPDF)
		dashboard.GET("/api-keys", r.pageHandler.APIKeys)
		dashboard.GET("/perfil", r.pageHandler.Profile)
	}

	engine.GET("/ws", middleware.Auth(secret, cookie), r.websocketHandler.Handle)

	api := engine.Group("/api")
	{
		// Stripe and the bot authenticate with their own secrets
		api.POST("/stripe/webhook", r.billingHandler.Webhook)
		api.PUT("/telegram/link", r.linkHandler.Confirm)
		api.POST("/credits/consume", r.creditsHandler.Consume)
		api.POST("/credits/refund", r.creditsHandler.Refund)
		api.POST("/credentials/resolve", r.credentialHandler.Resolve)

		// callers without a session get validation errors first, then 401
		api.POST("/stripe/create-session", middleware.OptionalAuth(secret, cookie), r.billingHandler.CreateSession)
		api.POST("/telegram/link", middleware.OptionalAuth(secret, cookie), r.linkHandler.Issue)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(secret, cookie))
		{
			authenticated.GET("/profile", r.profileHandler.Get)
			authenticated.PUT("/profile/training", r.profileHandler.UpdateTraining)
			authenticated.GET("/profile/memory", r.profileHandler.ListMemory)
			authenticated.POST("/profile/memory", r.profileHandler.AddMemory)
			authenticated.DELETE("/profile/memory/:id", r.profileHandler.DeleteMemory)

			authenticated.GET("/credits", r.creditsHandler.Balance)
			authenticated.GET("/credits/history", r.creditsHandler.History)

			authenticated.GET("/credentials", r.credentialHandler.List)
			authenticated.POST("/credentials", r.credentialHandler.Save)
			authenticated.PATCH("/credentials/:id", r.credentialHandler.Toggle)
			authenticated.DELETE("/credentials/:id", r.credentialHandler.Delete)
		}
	}

	return engine
}
