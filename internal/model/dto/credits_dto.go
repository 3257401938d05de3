package dto

import "encoding/json"

// BotRequest fields every bot call carries
type BotRequest struct {
	ExternalID     json.Number `json:"external_id"`
	TelegramUserID json.Number `json:"telegram_user_id"`
	SharedSecret   string      `json:"shared_secret"`
	BotSecret      string      `json:"bot_secret"`
}

func (r *BotRequest) Secret() string {
	if r.SharedSecret != "" {
		return r.SharedSecret
	}
	return r.BotSecret
}

func (r *BotRequest) ID() int64 {
	return parseExternalID(r.ExternalID, r.TelegramUserID)
}

type ConsumeRequest struct {
	BotRequest
	Operation string `json:"operation"`
}

type ConsumeResponse struct {
	Remaining int `json:"remaining"`
	Cost      int `json:"cost"`
}

type RefundRequest struct {
	BotRequest
	Credits int    `json:"credits"`
	Reason  string `json:"reason"`
}

type BalanceResponse struct {
	Credits int    `json:"credits"`
	Plan    string `json:"plan"`
}

type ResolveCredentialRequest struct {
	BotRequest
	Provider string `json:"provider"`
}

type ResolveCredentialResponse struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}
