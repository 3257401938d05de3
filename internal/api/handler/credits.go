package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/internal/api/middleware"
	"github.com/agentpilot/web/internal/model/dto"
	"github.com/agentpilot/web/internal/pkg/response"
	"github.com/agentpilot/web/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreditsHandler balance reads for the dashboard, spend and refund for the bot
type CreditsHandler struct {
	ledger    *service.LedgerService
	profiles  *service.ProfileService
	botSecret string
}

func NewCreditsHandler(ledger *service.LedgerService, profiles *service.ProfileService, botSecret string) *CreditsHandler {
	return &CreditsHandler{
		ledger:    ledger,
		profiles:  profiles,
		botSecret: botSecret,
	}
}

// botProfile authenticates the bot and resolves the linked profile, writing the error response itself
func (h *CreditsHandler) botProfile(c *gin.Context, req *dto.BotRequest) (string, bool) {
	if !botAuthorized(h.botSecret, req.Secret()) {
		response.AuthError(c, "Unauthorized")
		return "", false
	}
	id := req.ID()
	if id == 0 {
		response.ParamError(c, "external_id is required")
		return "", false
	}

	profile, err := h.profiles.GetByExternalID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.NotFoundError(c, "User not found")
		} else {
			log.Error().Err(err).Int64("external_id", id).Msg("credits: profile lookup failed")
			response.ServerError(c, "")
		}
		return "", false
	}
	return profile.ID, true
}

// Consume charges a bot operation
// POST /api/credits/consume
func (h *CreditsHandler) Consume(c *gin.Context) {
	var req dto.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	userID, ok := h.botProfile(c, &req.BotRequest)
	if !ok {
		return
	}

	remaining, cost, err := h.ledger.ConsumeOperation(c.Request.Context(), userID, req.Operation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownOperation):
			response.ParamError(c, "Unknown operation")
		case errors.Is(err, service.ErrInsufficientCredits):
			response.CreditsError(c, "Insufficient credits", cost)
		case errors.Is(err, service.ErrProfileNotFound):
			response.NotFoundError(c, "User not found")
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("credits: consume failed")
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.ConsumeResponse{Remaining: remaining, Cost: cost})
}

// Refund returns credits for an operation that failed downstream
// POST /api/credits/refund
func (h *CreditsHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	userID, ok := h.botProfile(c, &req.BotRequest)
	if !ok {
		return
	}

	remaining, err := h.ledger.Refund(c.Request.Context(), userID, req.Credits, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, "credits must be positive")
		case errors.Is(err, service.ErrProfileNotFound):
			response.NotFoundError(c, "User not found")
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("credits: refund failed")
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.ConsumeResponse{Remaining: remaining})
}

// Balance of the signed-in user
// GET /api/credits
func (h *CreditsHandler) Balance(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.NotFoundError(c, "User not found")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, dto.BalanceResponse{Credits: profile.Credits, Plan: profile.Plan})
}

// History paginated ledger of the signed-in user
// GET /api/credits/history?page=&page_size=
func (h *CreditsHandler) History(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, pageSize := pagination(c)

	rows, total, err := h.profiles.History(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("credits: history failed")
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, rows)
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
