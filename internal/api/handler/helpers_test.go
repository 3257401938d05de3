package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/model"
	"github.com/agentpilot/web/internal/pkg/jwt"
	"github.com/agentpilot/web/internal/pkg/oauth"
	"github.com/agentpilot/web/internal/pkg/payment"
	"github.com/agentpilot/web/internal/pkg/vault"
	"github.com/agentpilot/web/internal/repository"
	"github.com/agentpilot/web/internal/service"
	"github.com/agentpilot/web/internal/testutil"
)

const (
	testBotSecret     = "bot-secret"
	testWebhookSecret = "whsec_test"
	testVaultKey      = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Agent Pilot", PublicURL: "https://agentpilot.test"},
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1, CookieName: "ap_session"},
		Stripe: config.StripeConfig{
			WebhookSecret:   testWebhookSecret,
			PriceStarter:    "price_starter",
			PricePro:        "price_pro",
			PriceEnterprise: "price_enterprise",
		},
		Bot: config.BotConfig{WebhookSecret: testBotSecret, Username: "AgentPilotBot"},
		Credits: config.CreditsConfig{
			Welcome:        50,
			LinkCodeTTLMin: 10,
			Plans: []config.PlanConfig{
				{ID: "free", Name: "Free", Price: 0, Credits: 0},
				{ID: "starter", Name: "Starter", Price: 9, Credits: 100},
				{ID: "pro", Name: "Pro", Price: 29, Credits: 500},
				{ID: "enterprise", Name: "Enterprise", Price: 99, Credits: 2000},
			},
			Packs: []config.PackConfig{
				{ID: "pack_100", Name: "100 créditos", PriceID: "price_pack_100", Price: 4.99, Credits: 100},
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

// fakeGateway in-memory payment provider
type fakeGateway struct {
	mu       sync.Mutex
	sessions []payment.CheckoutRequest
	prices   map[string]string
	err      error
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, userID string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
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
	if g.err != nil {
		return "", g.err
	}
	return g.prices[subscriptionID], nil
}

// fakeIdentityProvider accepts the code "good" as user@example.com
type fakeIdentityProvider struct{}

func (fakeIdentityProvider) AuthCodeURL(state string) string {
	return "https://id.example.com/authorize?state=" + state
}

func (fakeIdentityProvider) Exchange(_ context.Context, code string) (*oauth.Identity, error) {
	if code != "good" {
		return nil, service.ErrInvalidSession
	}
	return &oauth.Identity{Subject: "sub-1", Email: "user@example.com", EmailVerified: true}, nil
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	gateway  *fakeGateway
	states   *oauth.MemoryStateStore
	ledger   *service.LedgerService
	billing  *service.BillingService
	links    *service.LinkService
	profiles *service.ProfileService
	creds    *service.CredentialService
	auth     *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	profileRepo := repository.NewProfileRepository(db)
	ledger := service.NewLedgerService(db, profileRepo, repository.NewTransactionRepository(db), cfg)
	gateway := &fakeGateway{prices: map[string]string{}}

	v, err := vault.New(testVaultKey)
	require.NoError(t, err)

	states := oauth.NewMemoryStateStore()
	return &testEnv{
		db:       db,
		cfg:      cfg,
		gateway:  gateway,
		states:   states,
		ledger:   ledger,
		billing:  service.NewBillingService(db, profileRepo, repository.NewWebhookEventRepository(db), ledger, gateway, cfg),
		links:    service.NewLinkService(profileRepo, cfg),
		profiles: service.NewProfileService(profileRepo, repository.NewMemoryRepository(db), ledger),
		creds:    service.NewCredentialService(repository.NewCredentialRepository(db), profileRepo, v),
		auth:     service.NewAuthService(db, profileRepo, ledger, fakeIdentityProvider{}, states, cfg),
	}
}

func (e *testEnv) session(t *testing.T, p *model.Profile) *http.Cookie {
	t.Helper()

	token, err := jwt.GenerateToken(p.ID, p.Email, e.cfg.JWT.Secret, 1)
	require.NoError(t, err)
	return &http.Cookie{Name: e.cfg.JWT.CookieName, Value: token}
}

func (e *testEnv) reload(t *testing.T, id string) *model.Profile {
	t.Helper()

	var p model.Profile
	require.NoError(t, e.db.First(&p, "id = ?", id).Error)
	return &p
}

func performRequest(r http.Handler, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
