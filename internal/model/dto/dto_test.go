package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmLinkRequest_LegacyKeys(t *testing.T) {
	var req ConfirmLinkRequest
	require.NoError(t, json.Unmarshal([]byte(`{"code":"ABCD2345","telegram_user_id":123456789,"bot_secret":"s"}`), &req))
	assert.Equal(t, int64(123456789), req.ID())
	assert.Equal(t, "s", req.Secret())

	req = ConfirmLinkRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"code":"ABCD2345","external_id":"42","shared_secret":"new","bot_secret":"old"}`), &req))
	assert.Equal(t, int64(42), req.ID())
	assert.Equal(t, "new", req.Secret())
}

func TestBotRequest_BadID(t *testing.T) {
	var req ConsumeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"external_id":12.5,"operation":"fast"}`), &req))
	assert.Equal(t, int64(0), req.ID())
	assert.Equal(t, "fast", req.Operation)
}
