package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Credits.Welcome)
	assert.Equal(t, 10, cfg.Credits.LinkCodeTTLMin)
	assert.Equal(t, 5, cfg.Credits.OperationCosts["consensus"])
	require.Len(t, cfg.Credits.Plans, 3)
	assert.Equal(t, "pro", cfg.Credits.Plans[1].ID)
	assert.Equal(t, 500, cfg.Credits.Plans[1].Credits)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "stripe:\n  price_pro: price_from_file\n")

	t.Setenv("STRIPE_PRICE_PRO", "price_from_env")
	t.Setenv("BOT_WEBHOOK_SECRET", "bot-secret")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "price_from_env", cfg.Stripe.PricePro)
	assert.Equal(t, "bot-secret", cfg.Bot.WebhookSecret)
	assert.Equal(t, "whsec_env", cfg.Stripe.WebhookSecret)
}

func TestLoad_LocalOverridesFile(t *testing.T) {
	path := writeConfig(t, "app:\n  name: base\n")
	local := filepath.Join(filepath.Dir(path), "config.local.yaml")
	require.NoError(t, os.WriteFile(local, []byte("app:\n  name: local\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.App.Name)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestStripeConfig_PriceID(t *testing.T) {
	c := StripeConfig{PriceStarter: "s", PricePro: "p", PriceEnterprise: "e"}

	assert.Equal(t, "s", c.PriceID("starter"))
	assert.Equal(t, "p", c.PriceID("pro"))
	assert.Equal(t, "e", c.PriceID("enterprise"))
	assert.Empty(t, c.PriceID("free"))
}

func TestBotConfig_URL(t *testing.T) {
	assert.Empty(t, (&BotConfig{}).URL())
	assert.Equal(t, "https://t.me/AgentPilotBot", (&BotConfig{Username: "@AgentPilotBot"}).URL())
}
