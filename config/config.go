package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application configuration, see config.yaml
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	App         AppConfig         `mapstructure:"app"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Bot         BotConfig         `mapstructure:"bot"`
	Credits     CreditsConfig     `mapstructure:"credits"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Cron        CronConfig        `mapstructure:"cron"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	PublicURL string `mapstructure:"public_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite only
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	CookieName  string `mapstructure:"cookie_name"`
}

// AuthConfig hosted identity provider (OIDC)
type AuthConfig struct {
	IssuerURL    string   `mapstructure:"issuer_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type StripeConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	PriceStarter    string `mapstructure:"price_starter"`
	PricePro        string `mapstructure:"price_pro"`
	PriceEnterprise string `mapstructure:"price_enterprise"`
}

type BotConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
	Username      string `mapstructure:"username"` // t.me handle shown on the pages
}

// URL deep link to the bot, empty when no handle is configured
func (c *BotConfig) URL() string {
	if c.Username == "" {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(c.Username, "@")
}

type CreditsConfig struct {
	Welcome        int            `mapstructure:"welcome"`
	LinkCodeTTLMin int            `mapstructure:"link_code_ttl_minutes"`
	Plans          []PlanConfig   `mapstructure:"plans"`
	Packs          []PackConfig   `mapstructure:"packs"`
	OperationCosts map[string]int `mapstructure:"operation_costs"`
}

// PlanConfig a subscription tier; Price 0 means free
type PlanConfig struct {
	ID       string   `mapstructure:"id"`
	Name     string   `mapstructure:"name"`
	Price    float64  `mapstructure:"price"`
	Credits  int      `mapstructure:"credits"`
	Features []string `mapstructure:"features"`
}

// PackConfig a one-time credit purchase
type PackConfig struct {
	ID      string  `mapstructure:"id"`
	Name    string  `mapstructure:"name"`
	PriceID string  `mapstructure:"price_id"`
	Price   float64 `mapstructure:"price"`
	Credits int     `mapstructure:"credits"`
}

type CredentialsConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"` // hex, 32 bytes
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type CronConfig struct {
	LinkCodeSweep   string `mapstructure:"link_code_sweep"`
	EventPrune      string `mapstructure:"event_prune"`
	EventRetainDays int    `mapstructure:"event_retain_days"`
}

// Load reads config.local.yaml beside configPath when present, else configPath; the environment overrides either
func Load(configPath string) (*Config, error) {
	// .env first so the environment overrides below see it
	_ = godotenv.Load()

	// config.local.yaml carries real secrets and is not committed
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// env-only deployments have no config file
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("app.name", "Agent Pilot")
	v.SetDefault("app.public_url", "http://localhost:3000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "agentpilot")
	v.SetDefault("database.path", "agentpilot.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("jwt.cookie_name", "ap_session")

	v.SetDefault("auth.issuer_url", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.scopes", []string{"openid", "email", "profile"})

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.price_starter", "")
	v.SetDefault("stripe.price_pro", "")
	v.SetDefault("stripe.price_enterprise", "")

	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.username", "")

	v.SetDefault("credits.welcome", 50)
	v.SetDefault("credits.link_code_ttl_minutes", 10)
	v.SetDefault("credits.plans", []map[string]interface{}{
		{"id": "starter", "name": "Starter", "price": 9, "credits": 100, "features": []string{
			"100 consultas/mes", "Acceso a 3 sabios", "Respuestas en 30 segundos", "Soporte por email",
		}},
		{"id": "pro", "name": "Pro", "price": 29, "credits": 500, "features": []string{
			"500 consultas/mes", "Acceso a todos los sabios", "Respuestas prioritarias", "Historial ilimitado", "Soporte prioritario",
		}},
		{"id": "enterprise", "name": "Enterprise", "price": 99, "credits": 2000, "features": []string{
			"2000 consultas/mes", "Acceso a todos los sabios", "Respuestas instantáneas", "API access", "Soporte dedicado 24/7", "Personalización de sabios",
		}},
	})
	v.SetDefault("credits.packs", []map[string]interface{}{})
	v.SetDefault("credits.operation_costs", map[string]int{
		"fast":          1,
		"consensus":     5,
		"deep_analysis": 10,
		"social_post":   2,
		"image_gen":     5,
	})

	v.SetDefault("credentials.encryption_key", "")

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})

	v.SetDefault("cron.link_code_sweep", "@every 15m")
	v.SetDefault("cron.event_prune", "0 4 * * *")
	v.SetDefault("cron.event_retain_days", 90)
}

// PriceID returns the Stripe price configured for a plan, empty for free / unknown plans.
func (c *StripeConfig) PriceID(planID string) string {
	switch planID {
	case "starter":
		return c.PriceStarter
	case "pro":
		return c.PricePro
	case "enterprise":
		return c.PriceEnterprise
	}
	return ""
}
