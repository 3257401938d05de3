package dto

import (
	"time"

	"github.com/agentpilot/web/internal/model"
)

// ProfileResponse the caller's own profile
type ProfileResponse struct {
	ID              string                `json:"id"`
	Email           string                `json:"email"`
	Credits         int                   `json:"credits"`
	Plan            string                `json:"plan"`
	Status          string                `json:"status"`
	TelegramLinked  bool                  `json:"telegram_linked"`
	TrainingProfile model.TrainingProfile `json:"training_profile"`
	CreatedAt       time.Time             `json:"created_at"`
}

func NewProfileResponse(p *model.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:              p.ID,
		Email:           p.Email,
		Credits:         p.Credits,
		Plan:            p.Plan,
		Status:          p.Status,
		TelegramLinked:  p.IsLinked(),
		TrainingProfile: p.TrainingProfile,
		CreatedAt:       p.CreatedAt,
	}
}

type MemoryNoteRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type SaveCredentialRequest struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}
