package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model/dto"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/service"
)

// CredentialHandler BYOA key management
type CredentialHandler struct {
	creds     *service.CredentialService
	profiles  *service.ProfileService
	botSecret string
}

func NewCredentialHandler(creds *service.CredentialService, profiles *service.ProfileService, botSecret string) *CredentialHandler {
	return &CredentialHandler{
		creds:     creds,
		profiles:  profiles,
		botSecret: botSecret,
	}
}

// List GET /api/credentials
func (h *CredentialHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.creds.List(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("credentials: list failed")
		response.ServerError(c, "")
		return
	}
	response.Success(c, gin.H{"items": views})
}

// Save POST /api/credentials
func (h *CredentialHandler) Save(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.SaveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "provider and api_key are required")
		return
	}

	view, err := h.creds.Save(c.Request.Context(), userID, req.Provider, req.APIKey)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, view)
}

// Toggle PATCH /api/credentials/:id
func (h *CredentialHandler) Toggle(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	view, err := h.creds.Toggle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, view)
}

// Delete DELETE /api/credentials/:id
func (h *CredentialHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.creds.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, nil)
}

// Resolve hands the bot the decrypted key of a linked user
// POST /api/credentials/resolve
func (h *CredentialHandler) Resolve(c *gin.Context) {
	var req dto.ResolveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if !botAuthorized(h.botSecret, req.Secret()) {
		response.AuthError(c, "Unauthorized")
		return
	}

	profile, err := h.profiles.GetByExternalID(c.Request.Context(), req.ID())
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.NotFoundError(c, "User not found")
			return
		}
		response.ServerError(c, "")
		return
	}
	if !profile.IsPaid() {
		response.PermissionError(c, service.ErrPaidPlanRequired.Error())
		return
	}

	key, err := h.creds.Resolve(c.Request.Context(), profile.ID, req.Provider)
	if err != nil {
		h.fail(c, profile.ID, err)
		return
	}
	response.Success(c, dto.ResolveCredentialResponse{Provider: req.Provider, APIKey: key})
}

func (h *CredentialHandler) fail(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidProvider), errors.Is(err, service.ErrEmptyAPIKey):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrPaidPlanRequired):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrCredentialNotFound), errors.Is(err, service.ErrProfileNotFound):
		response.NotFoundError(c, err.Error())
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("credentials: request failed")
		response.ServerError(c, "")
	}
}
