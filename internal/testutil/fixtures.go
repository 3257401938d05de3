package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/agentpilot/web/internal/model"
)

// TestProfile creates a profile
func TestProfile(t *testing.T, db *gorm.DB, opts ...func(*model.Profile)) *model.Profile {
	t.Helper()

	profile := &model.Profile{
		Email:   fmt.Sprintf("test_%d@example.com", time.Now().UnixNano()),
		Credits: 50,
		Plan:    model.PlanFree,
		Status:  model.StatusActive,
	}

	for _, opt := range opts {
		opt(profile)
	}

	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return profile
}

// WithEmail sets the email
func WithEmail(email string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Email = email
	}
}

// WithCredits sets the balance
func WithCredits(credits int) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Credits = credits
	}
}

// WithPlan sets the plan
func WithPlan(plan string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Plan = plan
	}
}

// WithStripeCustomer sets the payment customer id
func WithStripeCustomer(customerID string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.StripeCustomerID = &customerID
	}
}

// WithTelegram links a bot account
func WithTelegram(telegramID int64) func(*model.Profile) {
	return func(p *model.Profile) {
		p.TelegramUserID = &telegramID
	}
}

// WithLinkCode sets a pending linking code
func WithLinkCode(code string, expiresAt time.Time) func(*model.Profile) {
	return func(p *model.Profile) {
		p.LinkCode = &code
		p.LinkCodeExpiresAt = &expiresAt
	}
}

// TestTransaction appends a ledger row
func TestTransaction(t *testing.T, db *gorm.DB, userID, kind string, credits int) *model.Transaction {
	t.Helper()

	tx := &model.Transaction{
		UserID:      userID,
		Kind:        kind,
		Credits:     credits,
		Description: fmt.Sprintf("test %s %d", kind, credits),
	}

	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// TestCredential stores an already encrypted credential
func TestCredential(t *testing.T, db *gorm.DB, userID, provider string) *model.APICredential {
	t.Helper()

	cred := &model.APICredential{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: "ciphertext",
		KeyHint:      "1234",
		Active:       true,
	}

	if err := db.Create(cred).Error; err != nil {
		t.Fatalf("Failed to create test credential: %v", err)
	}

	return cred
}
