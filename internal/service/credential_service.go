package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/vault"
	"github.com/agentpilot/web/internal/repository"
)

const maxAPIKeyLength = 512

var (
	ErrPaidPlanRequired   = errors.New("BYOA requires a paid plan")
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrEmptyAPIKey        = errors.New("api_key is required")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrVaultUnavailable   = errors.New("credential storage not configured")
)

// CredentialView what the dashboard may show of a stored key
type CredentialView struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	KeyHint   string    `json:"key_hint"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialService BYOA keys, sealed per user and provider
type CredentialService struct {
	creds    *repository.CredentialRepository
	profiles *repository.ProfileRepository
	vault    *vault.Vault
}

func NewCredentialService(creds *repository.CredentialRepository, profiles *repository.ProfileRepository, v *vault.Vault) *CredentialService {
	return &CredentialService{creds: creds, profiles: profiles, vault: v}
}

// List never exposes the key, only its hint
func (s *CredentialService) List(ctx context.Context, userID string) ([]CredentialView, error) {
	rows, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]CredentialView, 0, len(rows))
	for _, c := range rows {
		views = append(views, toView(c))
	}
	return views, nil
}

// Save upserts the key for (user, provider) and re-activates it
func (s *CredentialService) Save(ctx context.Context, userID, provider, apiKey string) (*CredentialView, error) {
	if s.vault == nil {
		return nil, ErrVaultUnavailable
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	if !model.IsValidProvider(provider) {
		return nil, ErrInvalidProvider
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || len(apiKey) > maxAPIKeyLength {
		return nil, ErrEmptyAPIKey
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if !profile.IsPaid() {
		return nil, ErrPaidPlanRequired
	}

	sealed, err := s.vault.Seal(apiKey, aad(userID, provider))
	if err != nil {
		return nil, err
	}
	hint := vault.Hint(apiKey)

	existing, err := s.creds.GetByProvider(ctx, userID, provider)
	switch {
	case err == nil:
		if err := s.creds.UpdateKey(ctx, existing.ID, sealed, hint); err != nil {
			return nil, err
		}
		existing.KeyHint = hint
		existing.Active = true
		log.Info().Str("user_id", userID).Str("provider", provider).Msg("credentials: key replaced")
		view := toView(existing)
		return &view, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	cred := &model.APICredential{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: sealed,
		KeyHint:      hint,
		Active:       true,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("provider", provider).Msg("credentials: key stored")
	view := toView(cred)
	return &view, nil
}

// Toggle flips the active flag
func (s *CredentialService) Toggle(ctx context.Context, userID, id string) (*CredentialView, error) {
	cred, err := s.creds.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}

	n, err := s.creds.SetActive(ctx, userID, id, !cred.Active)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrCredentialNotFound
	}

	cred.Active = !cred.Active
	view := toView(cred)
	return &view, nil
}

// Delete returns ErrCredentialNotFound for keys of other users
func (s *CredentialService) Delete(ctx context.Context, userID, id string) error {
	n, err := s.creds.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// Resolve returns the plaintext key of an active credential for the bot
func (s *CredentialService) Resolve(ctx context.Context, userID, provider string) (string, error) {
	if s.vault == nil {
		return "", ErrVaultUnavailable
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	cred, err := s.creds.GetByProvider(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCredentialNotFound
		}
		return "", err
	}
	if !cred.Active {
		return "", ErrCredentialNotFound
	}

	return s.vault.Open(cred.EncryptedKey, aad(userID, provider))
}

func aad(userID, provider string) string {
	return userID + ":" + provider
}

func toView(c *model.APICredential) CredentialView {
	return CredentialView{
		ID:        c.ID,
		Provider:  c.Provider,
		KeyHint:   c.KeyHint,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}
