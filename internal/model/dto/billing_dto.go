package dto

// CreateSessionRequest planId for a subscription, packId for a one-time credit pack
type CreateSessionRequest struct {
	PlanID string `json:"planId"`
	PackID string `json:"packId"`
}

type CreateSessionResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledgement returned to the payment provider
type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}
