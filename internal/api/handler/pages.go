package handler

import (
	"bytes"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/service"
	"github.com/agentpilot/web/internal/web"
)

const historyPageSize = 20

var operationLabels = map[string]string{
	"fast":          "Consulta FAST",
	"consensus":     "Consejo de Sabios",
	"deep_analysis": "Análisis profundo",
	"social_post":   "Post para redes",
	"image_gen":     "Generación de imagen",
}

// OperationCost one row of the pricing table
type OperationCost struct {
	Name    string
	Credits int
}

// PageHandler server-rendered pages
type PageHandler struct {
	renderer *web.Renderer
	billing  *service.BillingService
	profiles *service.ProfileService
	creds    *service.CredentialService
	cfg      *config.Config
	costs    []OperationCost
}

func NewPageHandler(
	renderer *web.Renderer,
	billing *service.BillingService,
	profiles *service.ProfileService,
	creds *service.CredentialService,
	cfg *config.Config,
) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		billing:  billing,
		profiles: profiles,
		creds:    creds,
		cfg:      cfg,
		costs:    operationCosts(cfg.Credits.OperationCosts),
	}
}

func operationCosts(costs map[string]int) []OperationCost {
	out := make([]OperationCost, 0, len(costs))
	for op, credits := range costs {
		name, ok := operationLabels[op]
		if !ok {
			name = op
		}
		out = append(out, OperationCost{Name: name, Credits: credits})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits < out[j].Credits
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (h *PageHandler) render(c *gin.Context, name, title string, profile *model.Profile, data interface{}) {
	page := &web.Page{
		Title:   title,
		AppName: h.cfg.App.Name,
		Path:    c.Request.URL.Path,
		BotURL:  h.cfg.Bot.URL(),
		Data:    data,
	}
	if profile != nil {
		page.User = &web.User{ID: profile.ID, Email: profile.Email, Credits: profile.Credits, Plan: profile.Plan}
	}
	if c.Query("error") == "auth_failed" {
		page.Error = "No se pudo iniciar sesión. Inténtalo de nuevo."
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, page); err != nil {
		log.Error().Err(err).Str("page", name).Msg("pages: render failed")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// visitor the signed-in profile on public pages, nil for anonymous visitors
func (h *PageHandler) visitor(c *gin.Context) *model.Profile {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil
	}
	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return profile
}

// member the profile behind a dashboard page; stale sessions are logged out
func (h *PageHandler) member(c *gin.Context) (*model.Profile, bool) {
	userID, _ := middleware.GetUserID(c)
	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			c.Redirect(http.StatusFound, "/logout")
			return nil, false
		}
		log.Error().Err(err).Str("user_id", userID).Msg("pages: load profile failed")
		c.String(http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return profile, true
}

// Home GET /
func (h *PageHandler) Home(c *gin.Context) {
	h.render(c, "home", "", h.visitor(c), gin.H{
		"Welcome":  h.cfg.Credits.Welcome,
		"Features": web.Features,
		"Steps":    web.Steps,
		"Plans":    h.billing.Plans(),
		"FAQ":      web.FAQ,
	})
}

// Login GET /login?next=
func (h *PageHandler) Login(c *gin.Context) {
	next := service.SafeNext(c.Query("next"))
	if _, ok := middleware.GetUserID(c); ok && c.Query("error") == "" {
		c.Redirect(http.StatusFound, next)
		return
	}
	h.render(c, "login", "Entrar", nil, gin.H{"Next": next})
}

func (h *PageHandler) Terms(c *gin.Context) {
	h.render(c, "terminos", "Términos", h.visitor(c), nil)
}

func (h *PageHandler) Privacy(c *gin.Context) {
	h.render(c, "privacidad", "Privacidad", h.visitor(c), nil)
}

// Checkout GET /checkout?plan=
func (h *PageHandler) Checkout(c *gin.Context) {
	h.render(c, "checkout", "Planes", h.visitor(c), gin.H{
		"Selected": c.Query("plan"),
		"Plans":    h.billing.Plans(),
		"Packs":    h.billing.Packs(),
	})
}

// CheckoutSuccess GET /checkout/success?session_id=
func (h *PageHandler) CheckoutSuccess(c *gin.Context) {
	h.render(c, "checkout_success", "Pago completado", h.visitor(c), nil)
}

// Dashboard GET /dashboard
func (h *PageHandler) Dashboard(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}
	overview, err := h.profiles.Overview(c.Request.Context(), profile.ID)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}
	h.render(c, "dashboard", "Dashboard", profile, gin.H{"Overview": overview})
}

// Credits GET /dashboard/creditos
func (h *PageHandler) Credits(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}
	h.render(c, "creditos", "Créditos", profile, gin.H{
		"Profile": profile,
		"Costs":   h.costs,
		"Plans":   h.billing.Plans(),
		"Packs":   h.billing.Packs(),
	})
}

// History GET /dashboard/historial?page=
func (h *PageHandler) History(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	rows, total, err := h.profiles.History(c.Request.Context(), profile.ID, page, historyPageSize)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}

	pages := int((total + historyPageSize - 1) / historyPageSize)
	if pages < 1 {
		pages = 1
	}
	h.render(c, "historial", "Historial", profile, gin.H{
		"Rows":     rows,
		"Page":     page,
		"Pages":    pages,
		"Total":    total,
		"HasPrev":  page > 1,
		"HasNext":  page < pages,
		"PrevPage": page - 1,
		"NextPage": page + 1,
	})
}

// HistoryPDF GET /dashboard/historial.pdf
func (h *PageHandler) HistoryPDF(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}
	pdf, err := h.profiles.Statement(c.Request.Context(), profile.ID)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="agentpilot-historial.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// APIKeys GET /dashboard/api-keys
func (h *PageHandler) APIKeys(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}
	views, err := h.creds.List(c.Request.Context(), profile.ID)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}
	h.render(c, "api_keys", "API keys", profile, gin.H{
		"Paid":        profile.IsPaid(),
		"Providers":   model.Providers,
		"Credentials": views,
	})
}

// Profile GET /dashboard/perfil
func (h *PageHandler) Profile(c *gin.Context) {
	profile, ok := h.member(c)
	if !ok {
		return
	}
	notes, err := h.profiles.Memory(c.Request.Context(), profile.ID)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}
	h.render(c, "perfil", "Perfil", profile, gin.H{
		"Training": profile.TrainingProfile,
		"Styles":   model.WritingStyles,
		"Memory":   notes,
	})
}

func (h *PageHandler) fail(c *gin.Context, userID string, err error) {
	log.Error().Err(err).Str("user_id", userID).Str("path", c.Request.URL.Path).Msg("pages: request failed")
	c.String(http.StatusInternalServerError, "Internal server error")
}
