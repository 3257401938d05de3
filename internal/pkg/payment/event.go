package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.paid"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	BillingReasonSubscriptionCreate = "subscription_create"
)

var ErrMissingSignature = errors.New("missing Stripe signature")

// Event verified webhook envelope
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// VerifyEvent checks the Stripe-Signature header against the endpoint secret
func VerifyEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		out.Raw = event.Data.Raw
	}
	return out, nil
}

// CheckoutSession fields of checkout.session.completed the app reads
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// Email billing email, customer_email first
func (s *CheckoutSession) Email() string {
	if e := strings.TrimSpace(s.CustomerEmail); e != "" {
		return e
	}
	return strings.TrimSpace(s.CustomerDetails.Email)
}

// Invoice fields of invoice.paid the app reads
type Invoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	BillingReason string `json:"billing_reason"`
	Subscription  string `json:"subscription"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionID top-level field on older API versions, parent details on newer ones
func (i *Invoice) SubscriptionID() string {
	if s := strings.TrimSpace(i.Subscription); s != "" {
		return s
	}
	return strings.TrimSpace(i.Parent.SubscriptionDetails.Subscription)
}

// Subscription minimal representation of a subscription event
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

// Decode unmarshals event.data.object into one of the local shapes
func Decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("event has no data object")
	}
	return json.Unmarshal(raw, v)
}
