package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderDeepSeek   = "deepseek"
	ProviderPerplexity = "perplexity"
)

var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek, ProviderPerplexity}

// APICredential user supplied vendor key (BYOA)
type APICredential struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_credential_user_provider" json:"user_id"`
	Provider     string    `gorm:"size:20;not null;uniqueIndex:idx_credential_user_provider" json:"provider"`
	EncryptedKey string    `gorm:"type:text;not null" json:"-"`
	KeyHint      string    `gorm:"size:8" json:"key_hint"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (APICredential) TableName() string {
	return "api_credentials"
}

func (c *APICredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsValidProvider one of Providers
func IsValidProvider(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}
