package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/metrics"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/pubsub"
	"github.com/agentpilot/web/internal/repository"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("credits must be positive")
	ErrUnknownOperation    = errors.New("unknown operation")
)

// BalanceNotifier receives committed balance changes
type BalanceNotifier interface {
	NotifyBalance(ctx context.Context, msg *pubsub.BalanceMessage) error
}

// Entry one ledger movement
type Entry struct {
	UserID      string
	Kind        string
	Credits     int
	Description string
	PaymentRef  string
}

// LedgerService every balance change goes through here, paired with its ledger row
type LedgerService struct {
	db       *gorm.DB
	profiles *repository.ProfileRepository
	txs      *repository.TransactionRepository
	costs    map[string]int
	notifier BalanceNotifier
}

// NewLedgerService balance changes are silent until SetNotifier
func NewLedgerService(db *gorm.DB, profiles *repository.ProfileRepository, txs *repository.TransactionRepository, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:       db,
		profiles: profiles,
		txs:      txs,
		costs:    cfg.Credits.OperationCosts,
	}
}

// SetNotifier receives a message after every committed balance change
func (s *LedgerService) SetNotifier(n BalanceNotifier) {
	s.notifier = n
}

// Grant adds credits and appends the ledger row atomically, returning the new balance
func (s *LedgerService) Grant(ctx context.Context, e Entry) (int, error) {
	var profile *model.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, err = s.GrantTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.Notify(ctx, profile, e.Credits, e.Description)
	return profile.Credits, nil
}

// GrantTx is Grant inside a caller-owned transaction; the caller notifies after commit
func (s *LedgerService) GrantTx(ctx context.Context, tx *gorm.DB, e Entry) (*model.Profile, error) {
	if e.Credits <= 0 {
		return nil, ErrInvalidAmount
	}

	profiles := s.profiles.WithTx(tx)
	n, err := profiles.AddCredits(ctx, e.UserID, e.Credits)
	if err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}
	if n == 0 {
		return nil, ErrProfileNotFound
	}

	if err := s.appendTx(ctx, tx, e, e.Credits); err != nil {
		return nil, err
	}

	profile, err := profiles.GetByID(ctx, e.UserID)
	if err != nil {
		return nil, fmt.Errorf("reload profile: %w", err)
	}

	metrics.CreditsGranted.WithLabelValues(e.Kind).Add(float64(e.Credits))
	return profile, nil
}

// Consume deducts cost only when the balance covers it
func (s *LedgerService) Consume(ctx context.Context, userID string, cost int, description string) (int, error) {
	if cost <= 0 {
		return 0, ErrInvalidAmount
	}

	var profile *model.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := s.profiles.WithTx(tx)

		ok, err := profiles.DeductCredits(ctx, userID, cost)
		if err != nil {
			return fmt.Errorf("deduct credits: %w", err)
		}
		if !ok {
			if _, err := profiles.GetByID(ctx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return ErrInsufficientCredits
		}

		if err := s.appendTx(ctx, tx, Entry{
			UserID:      userID,
			Kind:        model.TxConsumption,
			Description: description,
		}, -cost); err != nil {
			return err
		}

		profile, err = profiles.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			metrics.InsufficientCredits.Inc()
		}
		return 0, err
	}

	s.Notify(ctx, profile, -cost, description)
	return profile.Credits, nil
}

// OperationCost looks up the configured price of a bot operation
func (s *LedgerService) OperationCost(operation string) (int, error) {
	cost, ok := s.costs[operation]
	if !ok || cost <= 0 {
		return 0, ErrUnknownOperation
	}
	return cost, nil
}

// ConsumeOperation charges the configured cost of operation
func (s *LedgerService) ConsumeOperation(ctx context.Context, userID, operation string) (remaining, cost int, err error) {
	cost, err = s.OperationCost(operation)
	if err != nil {
		return 0, 0, err
	}

	remaining, err = s.Consume(ctx, userID, cost, "Consulta "+operation)
	if err != nil {
		return 0, cost, err
	}

	metrics.CreditsConsumed.WithLabelValues(operation).Add(float64(cost))
	return remaining, cost, nil
}

// Refund returns credits after a failed operation
func (s *LedgerService) Refund(ctx context.Context, userID string, credits int, reason string) (int, error) {
	if reason == "" {
		reason = "Reembolso"
	}
	return s.Grant(ctx, Entry{
		UserID:      userID,
		Kind:        model.TxRefund,
		Credits:     credits,
		Description: reason,
	})
}

// History newest first; pageSize 0 returns every row
func (s *LedgerService) History(ctx context.Context, userID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.txs.ListByUser(ctx, userID, page, pageSize)
}

// Totals credits ever acquired and consumed
func (s *LedgerService) Totals(ctx context.Context, userID string) (acquired, consumed int64, err error) {
	return s.txs.Totals(ctx, userID)
}

// Notify publishes a balance change; failures are logged only
func (s *LedgerService) Notify(ctx context.Context, profile *model.Profile, delta int, reason string) {
	if s.notifier == nil || profile == nil {
		return
	}
	err := s.notifier.NotifyBalance(ctx, &pubsub.BalanceMessage{
		UserID:  profile.ID,
		Credits: profile.Credits,
		Delta:   delta,
		Plan:    profile.Plan,
		Reason:  reason,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", profile.ID).Msg("ledger: balance notification failed")
	}
}

func (s *LedgerService) appendTx(ctx context.Context, tx *gorm.DB, e Entry, delta int) error {
	row := &model.Transaction{
		UserID:      e.UserID,
		Kind:        e.Kind,
		Credits:     delta,
		Description: e.Description,
	}
	if e.PaymentRef != "" {
		ref := e.PaymentRef
		row.StripePaymentID = &ref
	}
	if err := s.txs.WithTx(tx).Create(ctx, row); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}
