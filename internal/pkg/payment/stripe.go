package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	stripecustomer "github.com/stripe/stripe-go/v82/customer"
	stripesubscription "github.com/stripe/stripe-go/v82/subscription"
)

const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

var ErrNotConfigured = errors.New("payment provider not configured")

// CheckoutRequest a hosted checkout for one line item
type CheckoutRequest struct {
	Mode       string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutResult hosted page to redirect the buyer to
type CheckoutResult struct {
	ID  string
	URL string
}

// Gateway the calls the app makes against the payment provider
type Gateway interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	SubscriptionPriceID(ctx context.Context, subscriptionID string) (string, error)
}

// StripeGateway Gateway backed by the Stripe API
type StripeGateway struct {
	secretKey string

	newCustomer     func(params *stripe.CustomerParams) (*stripe.Customer, error)
	newSession      func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSubscription func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		secretKey:       strings.TrimSpace(secretKey),
		newCustomer:     stripecustomer.New,
		newSession:      stripesession.New,
		getSubscription: stripesubscription.Get,
	}
}

func (g *StripeGateway) ready() error {
	if g.secretKey == "" {
		return ErrNotConfigured
	}
	stripe.Key = g.secretKey
	return nil
}

// CreateCustomer tags the customer with our user id
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	cust, err := g.newCustomer(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession subscription or one-time payment, per req.Mode
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	mode := stripe.CheckoutSessionModeSubscription
	if req.Mode == ModePayment {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(mode)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if sess == nil || strings.TrimSpace(sess.URL) == "" {
		return nil, errors.New("checkout session has no url")
	}

	return &CheckoutResult{ID: sess.ID, URL: sess.URL}, nil
}

// SubscriptionPriceID price of the first subscription item
func (g *StripeGateway) SubscriptionPriceID(ctx context.Context, subscriptionID string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.getSubscription(subscriptionID, params)
	if err != nil {
		return "", fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return "", nil
	}
	return sub.Items.Data[0].Price.ID, nil
}
