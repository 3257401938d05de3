package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model/dto"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/service"
)

// LinkHandler Telegram account linking
type LinkHandler struct {
	links     *service.LinkService
	botSecret string
}

func NewLinkHandler(links *service.LinkService, botSecret string) *LinkHandler {
	return &LinkHandler{
		links:     links,
		botSecret: botSecret,
	}
}

// Issue creates a linking code for the signed-in user, or for any email when called by the bot
// POST /api/telegram/link
func (h *LinkHandler) Issue(c *gin.Context) {
	var req dto.IssueLinkCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrEmailRequired.Error())
		return
	}

	email := req.Email
	if !botAuthorized(h.botSecret, req.SharedSecret) {
		if _, ok := middleware.GetUserID(c); !ok {
			response.AuthError(c, "Not authenticated")
			return
		}
		// a session may only issue codes for its own account
		session := middleware.GetEmail(c)
		if email == "" {
			email = session
		}
		if !strings.EqualFold(strings.TrimSpace(email), session) {
			response.PermissionError(c, "Email does not match the session")
			return
		}
	}

	issued, err := h.links.Issue(c.Request.Context(), email)
	if err != nil {
		var linked *service.AlreadyLinkedError
		switch {
		case errors.As(err, &linked):
			response.ErrorWith(c, http.StatusBadRequest, err.Error(), gin.H{"telegram_id": linked.ExternalID})
		case errors.Is(err, service.ErrEmailRequired):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFoundError(c, err.Error())
		default:
			log.Error().Err(err).Msg("link: issue code failed")
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.IssueLinkCodeResponse{
		Code:      issued.Code,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Confirm binds the bot account presenting a valid code
// PUT /api/telegram/link
func (h *LinkHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrLinkFieldsMissing.Error())
		return
	}

	if !botAuthorized(h.botSecret, req.Secret()) {
		log.Warn().Str("client_ip", c.ClientIP()).Msg("link: bot secret mismatch")
		response.AuthError(c, "Unauthorized")
		return
	}

	if err := h.links.Confirm(c.Request.Context(), req.Code, req.ID()); err != nil {
		switch {
		case errors.Is(err, service.ErrLinkFieldsMissing),
			errors.Is(err, service.ErrInvalidLinkCode),
			errors.Is(err, service.ErrLinkCodeExpired),
			errors.Is(err, service.ErrExternalIDTaken):
			response.ParamError(c, err.Error())
		default:
			log.Error().Err(err).Msg("link: confirm failed")
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Accounts linked successfully", nil)
}
