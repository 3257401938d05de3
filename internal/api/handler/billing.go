package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/metrics"
	"github.com/agentpilot/web/internal/model/dto"
	"github.com/agentpilot/web/internal/pkg/payment"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/service"
)

const maxWebhookBody = 1 << 20

// BillingHandler Stripe webhook and checkout
type BillingHandler struct {
	billing       *service.BillingService
	webhookSecret string
}

func NewBillingHandler(billing *service.BillingService, webhookSecret string) *BillingHandler {
	return &BillingHandler{
		billing:       billing,
		webhookSecret: webhookSecret,
	}
}

// Webhook receives Stripe events
// POST /api/stripe/webhook
func (h *BillingHandler) Webhook(c *gin.Context) {
	start := time.Now()

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Msg("billing: webhook body rejected")
		metrics.WebhookRequestsTotal.WithLabelValues("unknown", "rejected").Inc()
		response.ParamError(c, "Webhook Error")
		return
	}

	event, err := payment.VerifyEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("billing: webhook signature verification failed")
		metrics.WebhookRequestsTotal.WithLabelValues("unknown", "rejected").Inc()
		response.ParamError(c, "Webhook Error")
		return
	}

	outcome, err := h.billing.HandleEvent(c.Request.Context(), event)
	metrics.WebhookDuration.WithLabelValues(event.Type).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, service.ErrEventInFlight) {
			metrics.WebhookRequestsTotal.WithLabelValues(event.Type, "in_flight").Inc()
			response.ConflictError(c, "Event is being processed")
			return
		}
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("billing: webhook handler failed")
		metrics.WebhookRequestsTotal.WithLabelValues(event.Type, "error").Inc()
		response.ServerError(c, "Webhook handler failed")
		return
	}

	metrics.WebhookRequestsTotal.WithLabelValues(event.Type, string(outcome)).Inc()
	response.Success(c, dto.WebhookResponse{Received: true, Status: string(outcome)})
}

// CreateSession starts a Stripe Checkout for a plan or a credit pack
// POST /api/stripe/create-session
func (h *BillingHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "Invalid plan")
		return
	}

	in := service.CheckoutInput{PlanID: req.PlanID, PackID: req.PackID}
	if _, err := h.billing.ValidateCheckout(in); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "Not authenticated")
		return
	}

	url, err := h.billing.CreateCheckout(c.Request.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlan), errors.Is(err, service.ErrFreePlan), errors.Is(err, service.ErrInvalidPack):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrProfileNotFound):
			response.AuthError(c, "Not authenticated")
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("billing: create checkout session failed")
			response.ServerError(c, "Failed to create checkout session")
		}
		return
	}

	response.Success(c, dto.CreateSessionResponse{URL: url})
}
