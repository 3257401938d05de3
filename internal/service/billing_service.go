package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/metrics"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/lock"
	"github.com/agentpilot/web/internal/pkg/payment"
	"github.com/agentpilot/web/internal/repository"
)

var (
	ErrInvalidPlan   = errors.New("Invalid plan")
	ErrFreePlan      = errors.New("This plan is free")
	ErrInvalidPack   = errors.New("Invalid credit pack")
	ErrEventInFlight = errors.New("event is already being processed")
)

// Outcome how a webhook event was settled
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeIgnored   Outcome = "ignored"
)

// CheckoutInput exactly one of PlanID or PackID
type CheckoutInput struct {
	PlanID string
	PackID string
}

// BillingService settles Stripe events against the ledger and opens checkout sessions
type BillingService struct {
	db       *gorm.DB
	profiles *repository.ProfileRepository
	events   *repository.WebhookEventRepository
	ledger   *LedgerService
	gateway  payment.Gateway
	locker   lock.Locker
	cfg      *config.Config
	now      func() time.Time
}

// NewBillingService wires the event log and gateway; locking is off until SetLocker
func NewBillingService(
	db *gorm.DB,
	profiles *repository.ProfileRepository,
	events *repository.WebhookEventRepository,
	ledger *LedgerService,
	gateway payment.Gateway,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		db:       db,
		profiles: profiles,
		events:   events,
		ledger:   ledger,
		gateway:  gateway,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetLocker enables the cross-instance in-flight guard
func (s *BillingService) SetLocker(l lock.Locker) {
	s.locker = l
}

// Plans the plan table in display order
func (s *BillingService) Plans() []config.PlanConfig {
	return s.cfg.Credits.Plans
}

// Packs one-time credit packs offered on the pricing pages
func (s *BillingService) Packs() []config.PackConfig {
	return s.cfg.Credits.Packs
}

// PlanByID looks up a configured plan
func (s *BillingService) PlanByID(id string) (*config.PlanConfig, bool) {
	for i := range s.cfg.Credits.Plans {
		if s.cfg.Credits.Plans[i].ID == id {
			return &s.cfg.Credits.Plans[i], true
		}
	}
	return nil, false
}

// PlanByPriceID unconfigured prices never match
func (s *BillingService) PlanByPriceID(priceID string) (*config.PlanConfig, bool) {
	if priceID == "" {
		return nil, false
	}
	for i := range s.cfg.Credits.Plans {
		if s.cfg.Stripe.PriceID(s.cfg.Credits.Plans[i].ID) == priceID {
			return &s.cfg.Credits.Plans[i], true
		}
	}
	return nil, false
}

func (s *BillingService) packByID(id string) (*config.PackConfig, bool) {
	for i := range s.cfg.Credits.Packs {
		if s.cfg.Credits.Packs[i].ID == id {
			return &s.cfg.Credits.Packs[i], true
		}
	}
	return nil, false
}

// ValidateCheckout resolves the purchase before the caller is authenticated
func (s *BillingService) ValidateCheckout(in CheckoutInput) (*payment.CheckoutRequest, error) {
	if in.PackID != "" {
		pack, ok := s.packByID(in.PackID)
		if !ok || pack.PriceID == "" || pack.Credits <= 0 {
			return nil, ErrInvalidPack
		}
		return &payment.CheckoutRequest{
			Mode:    payment.ModePayment,
			PriceID: pack.PriceID,
			Metadata: map[string]string{
				"packId":  pack.ID,
				"credits": strconv.Itoa(pack.Credits),
			},
		}, nil
	}

	plan, ok := s.PlanByID(in.PlanID)
	if !ok {
		return nil, ErrInvalidPlan
	}
	priceID := s.cfg.Stripe.PriceID(plan.ID)
	if priceID == "" {
		return nil, ErrFreePlan
	}
	return &payment.CheckoutRequest{
		Mode:    payment.ModeSubscription,
		PriceID: priceID,
		Metadata: map[string]string{
			"planId":  plan.ID,
			"credits": strconv.Itoa(plan.Credits),
		},
	}, nil
}

// CreateCheckout gets or creates the Stripe customer and opens a hosted checkout
func (s *BillingService) CreateCheckout(ctx context.Context, userID string, in CheckoutInput) (string, error) {
	req, err := s.ValidateCheckout(in)
	if err != nil {
		return "", err
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}

	customerID := ""
	if profile.StripeCustomerID != nil {
		customerID = *profile.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, profile.Email, profile.ID)
		if err != nil {
			metrics.CheckoutSessions.WithLabelValues(req.Mode, "error").Inc()
			return "", err
		}
		if err := s.profiles.UpdateFields(ctx, profile.ID, map[string]interface{}{
			"stripe_customer_id": customerID,
		}); err != nil {
			return "", fmt.Errorf("save stripe customer: %w", err)
		}
	}

	base := strings.TrimRight(s.cfg.App.PublicURL, "/")
	req.CustomerID = customerID
	req.SuccessURL = base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	req.CancelURL = base + "/checkout"

	res, err := s.gateway.CreateCheckoutSession(ctx, *req)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(req.Mode, "error").Inc()
		return "", err
	}

	metrics.CheckoutSessions.WithLabelValues(req.Mode, "created").Inc()
	log.Info().
		Str("user_id", profile.ID).
		Str("session_id", res.ID).
		Str("mode", req.Mode).
		Msg("billing: checkout session created")
	return res.URL, nil
}

// HandleEvent applies a verified webhook event at most once per event id
func (s *BillingService) HandleEvent(ctx context.Context, event *payment.Event) (Outcome, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "stripe:event:"+event.ID)
		switch {
		case errors.Is(err, lock.ErrHeld):
			return "", ErrEventInFlight
		case err != nil:
			log.Warn().Err(err).Str("event_id", event.ID).Msg("billing: event lock unavailable, relying on event log")
		default:
			defer release()
		}
	}

	seen, err := s.events.Exists(ctx, event.ID)
	if err != nil {
		return "", fmt.Errorf("check event log: %w", err)
	}
	if seen {
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("billing: duplicate event acknowledged")
		return OutcomeDuplicate, nil
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		var sess payment.CheckoutSession
		if err := payment.Decode(event.Raw, &sess); err != nil {
			return "", fmt.Errorf("decode checkout.session: %w", err)
		}
		switch sess.Mode {
		case payment.ModeSubscription:
			return s.handleSubscriptionCheckout(ctx, event, &sess)
		case payment.ModePayment:
			return s.handlePaymentCheckout(ctx, event, &sess)
		default:
			log.Info().Str("event_id", event.ID).Str("mode", sess.Mode).Msg("billing: checkout mode ignored")
			return OutcomeIgnored, nil
		}

	case payment.EventInvoicePaid:
		var inv payment.Invoice
		if err := payment.Decode(event.Raw, &inv); err != nil {
			return "", fmt.Errorf("decode invoice: %w", err)
		}
		return s.handleInvoicePaid(ctx, event, &inv)

	case payment.EventSubscriptionDeleted:
		var sub payment.Subscription
		if err := payment.Decode(event.Raw, &sub); err != nil {
			return "", fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, event, &sub)

	default:
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("billing: event type ignored")
		return OutcomeIgnored, nil
	}
}

func (s *BillingService) handleSubscriptionCheckout(ctx context.Context, event *payment.Event, sess *payment.CheckoutSession) (Outcome, error) {
	logger := log.With().Str("event_id", event.ID).Str("session_id", sess.ID).Logger()

	if sess.Subscription == "" {
		logger.Warn().Msg("billing: subscription checkout without subscription id")
		return OutcomeSkipped, nil
	}

	priceID, err := s.gateway.SubscriptionPriceID(ctx, sess.Subscription)
	if err != nil {
		return "", err
	}
	plan, ok := s.PlanByPriceID(priceID)
	if !ok {
		logger.Warn().Str("price_id", priceID).Msg("billing: no plan for price")
		return OutcomeSkipped, nil
	}

	profile, ok, err := s.profileByEmail(ctx, sess.Email())
	if err != nil {
		return "", err
	}
	if !ok {
		logger.Warn().Str("email", sess.Email()).Msg("billing: no profile for checkout email")
		return OutcomeSkipped, nil
	}

	return s.apply(ctx, event, func(tx *gorm.DB) (*model.Profile, int, string, error) {
		fields := map[string]interface{}{"plan": plan.ID}
		if sess.Customer != "" {
			fields["stripe_customer_id"] = sess.Customer
		}
		if err := s.profiles.WithTx(tx).UpdateFields(ctx, profile.ID, fields); err != nil {
			return nil, 0, "", err
		}

		desc := "Suscripción plan " + plan.Name
		updated, err := s.ledger.GrantTx(ctx, tx, Entry{
			UserID:      profile.ID,
			Kind:        model.TxSubscription,
			Credits:     plan.Credits,
			Description: desc,
			PaymentRef:  sess.ID,
		})
		return updated, plan.Credits, desc, err
	})
}

func (s *BillingService) handlePaymentCheckout(ctx context.Context, event *payment.Event, sess *payment.CheckoutSession) (Outcome, error) {
	logger := log.With().Str("event_id", event.ID).Str("session_id", sess.ID).Logger()

	credits, err := strconv.Atoi(strings.TrimSpace(sess.Metadata["credits"]))
	if err != nil || credits <= 0 {
		logger.Warn().Str("credits", sess.Metadata["credits"]).Msg("billing: payment checkout without credits metadata")
		return OutcomeSkipped, nil
	}

	profile, ok, err := s.profileByEmail(ctx, sess.Email())
	if err != nil {
		return "", err
	}
	if !ok {
		logger.Warn().Str("email", sess.Email()).Msg("billing: no profile for checkout email")
		return OutcomeSkipped, nil
	}

	return s.apply(ctx, event, func(tx *gorm.DB) (*model.Profile, int, string, error) {
		desc := fmt.Sprintf("Compra de %d créditos", credits)
		updated, err := s.ledger.GrantTx(ctx, tx, Entry{
			UserID:      profile.ID,
			Kind:        model.TxPurchase,
			Credits:     credits,
			Description: desc,
			PaymentRef:  sess.ID,
		})
		return updated, credits, desc, err
	})
}

func (s *BillingService) handleInvoicePaid(ctx context.Context, event *payment.Event, inv *payment.Invoice) (Outcome, error) {
	logger := log.With().Str("event_id", event.ID).Str("invoice_id", inv.ID).Logger()

	// the checkout event already granted the first period
	if inv.BillingReason == payment.BillingReasonSubscriptionCreate {
		logger.Info().Msg("billing: initial invoice skipped")
		return OutcomeSkipped, nil
	}

	subID := inv.SubscriptionID()
	if subID == "" {
		logger.Info().Msg("billing: invoice without subscription ignored")
		return OutcomeIgnored, nil
	}

	priceID, err := s.gateway.SubscriptionPriceID(ctx, subID)
	if err != nil {
		return "", err
	}
	plan, ok := s.PlanByPriceID(priceID)
	if !ok {
		logger.Warn().Str("price_id", priceID).Msg("billing: no plan for price")
		return OutcomeSkipped, nil
	}

	profile, ok, err := s.profileByEmail(ctx, inv.CustomerEmail)
	if err != nil {
		return "", err
	}
	if !ok && inv.Customer != "" {
		profile, ok, err = s.profileByCustomer(ctx, inv.Customer)
		if err != nil {
			return "", err
		}
	}
	if !ok {
		logger.Warn().Str("email", inv.CustomerEmail).Msg("billing: no profile for invoice")
		return OutcomeSkipped, nil
	}

	return s.apply(ctx, event, func(tx *gorm.DB) (*model.Profile, int, string, error) {
		desc := "Renovación plan " + plan.Name
		updated, err := s.ledger.GrantTx(ctx, tx, Entry{
			UserID:      profile.ID,
			Kind:        model.TxSubscription,
			Credits:     plan.Credits,
			Description: desc,
			PaymentRef:  inv.ID,
		})
		return updated, plan.Credits, desc, err
	})
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event *payment.Event, sub *payment.Subscription) (Outcome, error) {
	profile, ok, err := s.profileByCustomer(ctx, sub.Customer)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Warn().Str("event_id", event.ID).Str("customer", sub.Customer).Msg("billing: no profile for cancelled subscription")
		return OutcomeSkipped, nil
	}

	return s.apply(ctx, event, func(tx *gorm.DB) (*model.Profile, int, string, error) {
		err := s.profiles.WithTx(tx).UpdateFields(ctx, profile.ID, map[string]interface{}{"plan": model.PlanFree})
		return nil, 0, "", err
	})
}

// apply runs fn and records the event id in one transaction
func (s *BillingService) apply(ctx context.Context, event *payment.Event, fn func(tx *gorm.DB) (*model.Profile, int, string, error)) (Outcome, error) {
	var (
		profile   *model.Profile
		delta     int
		reason    string
		duplicate bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)

		seen, err := events.Exists(ctx, event.ID)
		if err != nil {
			return err
		}
		if seen {
			duplicate = true
			return nil
		}

		profile, delta, reason, err = fn(tx)
		if err != nil {
			return err
		}

		return events.Create(ctx, &model.WebhookEvent{
			ID:          event.ID,
			Type:        event.Type,
			ProcessedAt: s.now(),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		duplicate = true
		err = nil
	}
	if err != nil {
		return "", err
	}
	if duplicate {
		return OutcomeDuplicate, nil
	}

	if profile != nil && delta != 0 {
		s.ledger.Notify(ctx, profile, delta, reason)
	}

	log.Info().
		Str("event_id", event.ID).
		Str("type", event.Type).
		Int("credits", delta).
		Msg("billing: event applied")
	return OutcomeProcessed, nil
}

func (s *BillingService) profileByEmail(ctx context.Context, email string) (*model.Profile, bool, error) {
	if strings.TrimSpace(email) == "" {
		return nil, false, nil
	}
	p, err := s.profiles.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *BillingService) profileByCustomer(ctx context.Context, customerID string) (*model.Profile, bool, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, false, nil
	}
	p, err := s.profiles.GetByStripeCustomerID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
