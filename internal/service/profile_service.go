package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/statement"
	"github.com/agentpilot/web/internal/repository"
)

const (
	maxListItems     = 20
	maxTextLength    = 2000
	maxMemoryNotes   = 50
	defaultLanguage  = "es"
	recentLedgerRows = 5
)

var (
	ErrInvalidWritingStyle = errors.New("invalid writing style")
	ErrTextTooLong         = errors.New("text field too long")
	ErrInvalidMemoryKind   = errors.New("invalid memory kind")
	ErrMemoryNotFound      = errors.New("memory note not found")
	ErrMemoryFieldsMissing = errors.New("key and value are required")
)

// Overview dashboard summary
type Overview struct {
	Profile  *model.Profile
	Acquired int64
	Consumed int64
	Recent   []*model.Transaction
}

// ProfileService dashboard reads and the bot-facing training data
type ProfileService struct {
	profiles *repository.ProfileRepository
	memory   *repository.MemoryRepository
	ledger   *LedgerService
	now      func() time.Time
}

func NewProfileService(profiles *repository.ProfileRepository, memory *repository.MemoryRepository, ledger *LedgerService) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		memory:   memory,
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get maps a missing row to ErrProfileNotFound
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// GetByExternalID resolves the bot account bound to a profile
func (s *ProfileService) GetByExternalID(ctx context.Context, externalID int64) (*model.Profile, error) {
	profile, err := s.profiles.GetByTelegramID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Overview balance, lifetime totals and the latest ledger rows
func (s *ProfileService) Overview(ctx context.Context, userID string) (*Overview, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	acquired, consumed, err := s.ledger.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, _, err := s.ledger.History(ctx, userID, 1, recentLedgerRows)
	if err != nil {
		return nil, err
	}

	return &Overview{Profile: profile, Acquired: acquired, Consumed: consumed, Recent: recent}, nil
}

func (s *ProfileService) History(ctx context.Context, userID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.ledger.History(ctx, userID, page, pageSize)
}

// UpdateTraining replaces the training profile after normalising it
func (s *ProfileService) UpdateTraining(ctx context.Context, userID string, in model.TrainingProfile) (*model.TrainingProfile, error) {
	tp, err := normalizeTraining(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateTrainingProfile(ctx, userID, tp); err != nil {
		return nil, err
	}
	return &tp, nil
}

// Memory newest notes first
func (s *ProfileService) Memory(ctx context.Context, userID string) ([]*model.MemoryNote, error) {
	return s.memory.ListByUser(ctx, userID, maxMemoryNotes)
}

// AddMemory stores a preference, correction or feedback note
func (s *ProfileService) AddMemory(ctx context.Context, userID, kind, key, value string) (*model.MemoryNote, error) {
	switch kind {
	case model.MemoryPreference, model.MemoryCorrection, model.MemoryFeedback:
	default:
		return nil, ErrInvalidMemoryKind
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return nil, ErrMemoryFieldsMissing
	}
	if len(key) > 100 || len(value) > maxTextLength {
		return nil, ErrTextTooLong
	}

	note := &model.MemoryNote{UserID: userID, Kind: kind, Key: key, Value: value}
	if err := s.memory.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteMemory only removes notes owned by userID
func (s *ProfileService) DeleteMemory(ctx context.Context, userID, id string) error {
	n, err := s.memory.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// Statement renders the full ledger as a PDF
func (s *ProfileService) Statement(ctx context.Context, userID string) ([]byte, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	acquired, consumed, err := s.ledger.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, _, err := s.ledger.History(ctx, userID, 1, 0)
	if err != nil {
		return nil, err
	}

	rows := make([]statement.Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, statement.Row{
			Date:        tx.CreatedAt,
			Kind:        tx.Kind,
			Description: tx.Description,
			Credits:     tx.Credits,
		})
	}

	pdf, err := statement.Generate(&statement.Data{
		Email:       profile.Email,
		Plan:        profile.Plan,
		Balance:     profile.Credits,
		Acquired:    acquired,
		Consumed:    consumed,
		GeneratedAt: s.now(),
		Rows:        rows,
	})
	if err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return pdf, nil
}

func normalizeTraining(in model.TrainingProfile) (model.TrainingProfile, error) {
	out := model.TrainingProfile{
		Description:     strings.TrimSpace(in.Description),
		PreferredTone:   strings.TrimSpace(in.PreferredTone),
		WritingStyle:    strings.ToLower(strings.TrimSpace(in.WritingStyle)),
		TargetAudience:  strings.TrimSpace(in.TargetAudience),
		PrimaryLanguage: strings.ToLower(strings.TrimSpace(in.PrimaryLanguage)),
		Values:          cleanList(in.Values),
		MainTopics:      cleanList(in.MainTopics),
		FixedHashtags:   cleanHashtags(in.FixedHashtags),
		StyleExamples:   cleanList(in.StyleExamples),
	}

	for _, f := range []string{out.Description, out.PreferredTone, out.TargetAudience} {
		if len(f) > maxTextLength {
			return model.TrainingProfile{}, ErrTextTooLong
		}
	}
	for _, ex := range out.StyleExamples {
		if len(ex) > maxTextLength {
			return model.TrainingProfile{}, ErrTextTooLong
		}
	}

	if out.WritingStyle != "" {
		valid := false
		for _, ws := range model.WritingStyles {
			if ws == out.WritingStyle {
				valid = true
				break
			}
		}
		if !valid {
			return model.TrainingProfile{}, ErrInvalidWritingStyle
		}
	}
	if out.PrimaryLanguage == "" {
		out.PrimaryLanguage = defaultLanguage
	}

	return out, nil
}

// cleanList trims, drops blanks and duplicates, caps the length
func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

func cleanHashtags(in []string) []string {
	tags := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		tags = append(tags, t)
	}
	return cleanList(tags)
}
