package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/metrics"
	"github.com/agentpilot/web/internal/repository"
)

const (
	linkCodeLength   = 8
	linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	ErrEmailRequired     = errors.New("Email is required")
	ErrUserNotFound      = errors.New("User not found")
	ErrAlreadyLinked     = errors.New("Already linked to Telegram")
	ErrLinkFieldsMissing = errors.New("Code and telegram_user_id are required")
	ErrInvalidLinkCode   = errors.New("Invalid or expired code")
	ErrLinkCodeExpired   = errors.New("Code has expired")
	ErrExternalIDTaken   = errors.New("Telegram account already linked to another user")
)

// AlreadyLinkedError carries the bound external id
type AlreadyLinkedError struct {
	ExternalID int64
}

func (e *AlreadyLinkedError) Error() string {
	return ErrAlreadyLinked.Error()
}

func (e *AlreadyLinkedError) Unwrap() error {
	return ErrAlreadyLinked
}

// IssuedCode a pending link code
type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
}

// LinkService binds a bot account to a web profile through a short code
type LinkService struct {
	profiles *repository.ProfileRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewLinkService(profiles *repository.ProfileRepository, cfg *config.Config) *LinkService {
	ttl := time.Duration(cfg.Credits.LinkCodeTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LinkService{
		profiles: profiles,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue stores a fresh code on the profile, replacing any pending one
func (s *LinkService) Issue(ctx context.Context, email string) (*IssuedCode, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LinkCodes.WithLabelValues("issue", "not_found").Inc()
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if profile.IsLinked() {
		metrics.LinkCodes.WithLabelValues("issue", "already_linked").Inc()
		return nil, &AlreadyLinkedError{ExternalID: *profile.TelegramUserID}
	}

	code, err := generateLinkCode()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.ttl)

	if err := s.profiles.SetLinkCode(ctx, profile.ID, code, expiresAt); err != nil {
		return nil, err
	}

	metrics.LinkCodes.WithLabelValues("issue", "ok").Inc()
	log.Info().Str("user_id", profile.ID).Time("expires_at", expiresAt).Msg("link: code issued")
	return &IssuedCode{Code: code, ExpiresAt: expiresAt}, nil
}

// Confirm binds externalID to the profile holding code
func (s *LinkService) Confirm(ctx context.Context, code string, externalID int64) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || externalID == 0 {
		return ErrLinkFieldsMissing
	}

	profile, err := s.profiles.GetByLinkCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LinkCodes.WithLabelValues("confirm", "invalid").Inc()
			return ErrInvalidLinkCode
		}
		return err
	}

	if profile.LinkCodeExpiresAt != nil && profile.LinkCodeExpiresAt.Before(s.now()) {
		metrics.LinkCodes.WithLabelValues("confirm", "expired").Inc()
		return ErrLinkCodeExpired
	}

	existing, err := s.profiles.GetByTelegramID(ctx, externalID)
	switch {
	case err == nil && existing.ID != profile.ID:
		metrics.LinkCodes.WithLabelValues("confirm", "taken").Inc()
		return ErrExternalIDTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	if err := s.profiles.LinkTelegram(ctx, profile.ID, externalID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.LinkCodes.WithLabelValues("confirm", "taken").Inc()
			return ErrExternalIDTaken
		}
		return err
	}

	metrics.LinkCodes.WithLabelValues("confirm", "ok").Inc()
	log.Info().Str("user_id", profile.ID).Int64("external_id", externalID).Msg("link: accounts linked")
	return nil
}

func generateLinkCode() (string, error) {
	max := big.NewInt(int64(len(linkCodeAlphabet)))
	var b strings.Builder
	b.Grow(linkCodeLength)
	for i := 0; i < linkCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(linkCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
