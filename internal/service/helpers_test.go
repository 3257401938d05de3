package service

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/payment"
	"github.com/agentpilot/web/internal/pkg/pubsub"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Agent Pilot", PublicURL: "https://agentpilot.test/"},
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1, CookieName: "ap_session"},
		Stripe: config.StripeConfig{
			PriceStarter:    "price_starter",
			PricePro:        "price_pro",
			PriceEnterprise: "price_enterprise",
		},
		Credits: config.CreditsConfig{
			Welcome:        50,
			LinkCodeTTLMin: 10,
			Plans: []config.PlanConfig{
				{ID: "starter", Name: "Starter", Price: 9, Credits: 100},
				{ID: "pro", Name: "Pro", Price: 29, Credits: 500},
				{ID: "enterprise", Name: "Enterprise", Price: 99, Credits: 2000},
			},
			Packs: []config.PackConfig{
				{ID: "pack_100", Name: "100 créditos", PriceID: "price_pack_100", Price: 5, Credits: 100},
			},
			OperationCosts: map[string]int{
				"fast":          1,
				"consensus":     5,
				"deep_analysis": 10,
				"social_post":   2,
				"image_gen":     5,
			},
		},
	}
}

// recordingNotifier collects balance notifications
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*pubsub.BalanceMessage
}

func (n *recordingNotifier) NotifyBalance(_ context.Context, msg *pubsub.BalanceMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) all() []*pubsub.BalanceMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*pubsub.BalanceMessage(nil), n.msgs...)
}

// fakeGateway in-memory payment provider
type fakeGateway struct {
	mu            sync.Mutex
	customers     int
	sessions      []payment.CheckoutRequest
	subscriptions map[string]string
	err           error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subscriptions: map[string]string{}}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.customers++
	return "cus_" + userID[:8], nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.sessions = append(g.sessions, req)
	return &payment.CheckoutResult{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (g *fakeGateway) SubscriptionPriceID(_ context.Context, subscriptionID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.subscriptions[subscriptionID], nil
}

func ledgerRows(t *testing.T, db *gorm.DB, userID string) []model.Transaction {
	t.Helper()

	var rows []model.Transaction
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("Failed to load ledger: %v", err)
	}
	return rows
}
