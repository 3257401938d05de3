package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/model/dto"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, dto.NewProfileResponse(profile))
}

// UpdateTraining replaces the training profile
// PUT /api/profile/training
func (h *ProfileHandler) UpdateTraining(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req model.TrainingProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	tp, err := h.profiles.UpdateTraining(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, tp)
}

// ListMemory GET /api/profile/memory
func (h *ProfileHandler) ListMemory(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	notes, err := h.profiles.Memory(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, gin.H{"items": notes})
}

// AddMemory POST /api/profile/memory
func (h *ProfileHandler) AddMemory(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.MemoryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrMemoryFieldsMissing.Error())
		return
	}

	note, err := h.profiles.AddMemory(c.Request.Context(), userID, req.Kind, req.Key, req.Value)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, note)
}

// DeleteMemory DELETE /api/profile/memory/:id
func (h *ProfileHandler) DeleteMemory(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.profiles.DeleteMemory(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.fail(c, userID, err)
		return
	}
	response.Success(c, nil)
}

func (h *ProfileHandler) fail(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidWritingStyle),
		errors.Is(err, service.ErrTextTooLong),
		errors.Is(err, service.ErrInvalidMemoryKind),
		errors.Is(err, service.ErrMemoryFieldsMissing):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrProfileNotFound), errors.Is(err, service.ErrMemoryNotFound):
		response.NotFoundError(c, err.Error())
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("profile: request failed")
		response.ServerError(c, "")
	}
}
