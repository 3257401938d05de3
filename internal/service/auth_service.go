package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/jwt"
	"github.com/agentpilot/web/internal/pkg/oauth"
	"github.com/agentpilot/web/internal/repository"
)

const (
	DefaultAfterLogin  = "/dashboard"
	welcomeDescription = "Créditos de bienvenida"
)

var (
	ErrAuthNotConfigured = errors.New("identity provider not configured")
	ErrMissingCode       = errors.New("missing authorization code")
	ErrNoEmail           = errors.New("identity has no email")
	ErrInvalidSession    = errors.New("invalid session")
)

// IdentityProvider hosted login, satisfied by *oauth.OIDCProvider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Identity, error)
}

// Session result of a successful callback
type Session struct {
	Token    string
	Profile  *model.Profile
	Redirect string
	Created  bool
}

// AuthService hosted login and session tokens
type AuthService struct {
	db       *gorm.DB
	profiles *repository.ProfileRepository
	ledger   *LedgerService
	provider IdentityProvider
	states   oauth.StateStore
	cfg      *config.Config
}

func NewAuthService(
	db *gorm.DB,
	profiles *repository.ProfileRepository,
	ledger *LedgerService,
	provider IdentityProvider,
	states oauth.StateStore,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		db:       db,
		profiles: profiles,
		ledger:   ledger,
		provider: provider,
		states:   states,
		cfg:      cfg,
	}
}

// LoginURL remembers next under a fresh state and returns the provider URL
func (s *AuthService) LoginURL(ctx context.Context, next string) (string, error) {
	if s.provider == nil {
		return "", ErrAuthNotConfigured
	}

	state, err := s.states.Issue(ctx, SafeNext(next))
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// Callback exchanges the code, bootstraps the profile and signs a session
func (s *AuthService) Callback(ctx context.Context, code, state, next string) (*Session, error) {
	if s.provider == nil {
		return nil, ErrAuthNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}

	stored, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(identity.Email) == "" {
		return nil, ErrNoEmail
	}

	profile, created, err := s.EnsureProfile(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(profile.ID, profile.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	redirect := SafeNext(stored)
	if strings.TrimSpace(next) != "" {
		redirect = SafeNext(next)
	}

	log.Info().
		Str("user_id", profile.ID).
		Bool("created", created).
		Msg("auth: login completed")

	return &Session{Token: token, Profile: profile, Redirect: redirect, Created: created}, nil
}

// EnsureProfile returns the profile for email, creating it with the welcome credits on first login
func (s *AuthService) EnsureProfile(ctx context.Context, email string) (*model.Profile, bool, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	welcome := s.cfg.Credits.Welcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile = &model.Profile{
			Email:  email,
			Plan:   model.PlanFree,
			Status: model.StatusActive,
		}
		if err := s.profiles.WithTx(tx).Create(ctx, profile); err != nil {
			return err
		}
		if welcome <= 0 {
			return nil
		}

		updated, err := s.ledger.GrantTx(ctx, tx, Entry{
			UserID:      profile.ID,
			Kind:        model.TxBonus,
			Credits:     welcome,
			Description: welcomeDescription,
		})
		if err != nil {
			return err
		}
		profile = updated
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent first login won the insert
		profile, err = s.profiles.GetByEmail(ctx, email)
		return profile, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("create profile: %w", err)
	}

	log.Info().Str("user_id", profile.ID).Int("credits", profile.Credits).Msg("auth: profile created")
	return profile, true, nil
}

// Authenticate resolves a session token to its profile
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Profile, error) {
	claims, err := jwt.ParseToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return profile, nil
}

// SafeNext accepts only local absolute paths
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return DefaultAfterLogin
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return DefaultAfterLogin
	}
	return next
}
