package dto

import (
	"encoding/json"
	"strconv"
	"strings"
)

// IssueLinkCodeRequest from the dashboard (session) or the bot (shared secret)
type IssueLinkCodeRequest struct {
	Email        string `json:"email"`
	SharedSecret string `json:"shared_secret"`
}

type IssueLinkCodeResponse struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}

// ConfirmLinkRequest accepts the current and the legacy bot field names
type ConfirmLinkRequest struct {
	Code           string      `json:"code"`
	ExternalID     json.Number `json:"external_id"`
	TelegramUserID json.Number `json:"telegram_user_id"`
	SharedSecret   string      `json:"shared_secret"`
	BotSecret      string      `json:"bot_secret"`
}

// Secret shared_secret, falling back to bot_secret
func (r *ConfirmLinkRequest) Secret() string {
	if r.SharedSecret != "" {
		return r.SharedSecret
	}
	return r.BotSecret
}

// ID the external account id; 0 when absent or not an integer
func (r *ConfirmLinkRequest) ID() int64 {
	return parseExternalID(r.ExternalID, r.TelegramUserID)
}

func parseExternalID(values ...json.Number) int64 {
	for _, v := range values {
		s := strings.TrimSpace(v.String())
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0
		}
		return id
	}
	return 0
}
