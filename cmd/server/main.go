package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/api"
	"github.com/agentpilot/web/internal/api/handler"
	"github.com/agentpilot/web/internal/database"
	"github.com/agentpilot/web/internal/metrics"
	"github.com/agentpilot/web/internal/pkg/cron"
	"github.com/agentpilot/web/internal/pkg/lock"
	"github.com/agentpilot/web/internal/pkg/logging"
	"github.com/agentpilot/web/internal/pkg/oauth"
	"github.com/agentpilot/web/internal/pkg/payment"
	"github.com/agentpilot/web/internal/pkg/pubsub"
	"github.com/agentpilot/web/internal/pkg/vault"
	"github.com/agentpilot/web/internal/pkg/ws"
	"github.com/agentpilot/web/internal/repository"
	"github.com/agentpilot/web/internal/service"
	"github.com/agentpilot/web/internal/web"
)

// Version set at build time with -ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "agentpilot-web",
		Short:         "Agent Pilot web app: accounts, credits, billing and bot linking",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "Path to config.yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, scheduler and balance forwarder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setup(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     cfg.Log.Level,
		Component: "web",
	})

	db, err := database.Open(&cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	return cfg, db, nil
}

func migrate(configPath string) error {
	_, db, err := setup(configPath)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("schema up to date")
	return nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, db, err := setup(configPath)
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) must be set")
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Redis is optional: without it state lives in memory and pushes stay local
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		log.Info().Str("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)).Msg("redis connected")
	}

	hub := ws.NewHub()
	metrics.WatchConnections(hub.ConnectionCount)

	profileRepo := repository.NewProfileRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)

	ledger := service.NewLedgerService(db, profileRepo, txRepo, cfg)
	billing := service.NewBillingService(db, profileRepo, eventRepo, ledger, payment.NewStripeGateway(cfg.Stripe.SecretKey), cfg)

	var states oauth.StateStore
	if rdb != nil {
		states = oauth.NewRedisStateStore(rdb)
		ledger.SetNotifier(service.NewPublishNotifier(pubsub.NewPublisher(rdb)))
		billing.SetLocker(lock.NewRedisLocker(rdb, 30*time.Second))
	} else {
		states = oauth.NewMemoryStateStore()
		ledger.SetNotifier(service.NewHubNotifier(hub))
		log.Warn().Msg("redis disabled: login state and balance pushes are local to this instance")
	}

	var provider service.IdentityProvider
	if cfg.Auth.IssuerURL != "" {
		redirectURL := strings.TrimRight(cfg.App.PublicURL, "/") + "/callback"
		p, err := oauth.NewOIDCProvider(ctx, cfg.Auth.IssuerURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret, redirectURL, cfg.Auth.Scopes)
		if err != nil {
			return fmt.Errorf("discover identity provider: %w", err)
		}
		provider = p
	} else {
		log.Warn().Msg("auth.issuer_url not set: login is disabled")
	}

	v, err := newVault(cfg)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(db, profileRepo, ledger, provider, states, cfg)
	linkService := service.NewLinkService(profileRepo, cfg)
	profileService := service.NewProfileService(profileRepo, memoryRepo, ledger)
	credentialService := service.NewCredentialService(credentialRepo, profileRepo, v)

	renderer, err := web.New()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	router := api.NewRouter(
		handler.NewAuthHandler(authService, cfg),
		handler.NewBillingHandler(billing, cfg.Stripe.WebhookSecret),
		handler.NewLinkHandler(linkService, cfg.Bot.WebhookSecret),
		handler.NewCreditsHandler(ledger, profileService, cfg.Bot.WebhookSecret),
		handler.NewCredentialHandler(credentialService, profileService, cfg.Bot.WebhookSecret),
		handler.NewProfileHandler(profileService),
		handler.NewPageHandler(renderer, billing, profileService, credentialService, cfg),
		handler.NewWebSocketHandler(hub, profileService, cfg.CORS.AllowedOrigins),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.NewService(profileRepo, eventRepo, cfg.Cron)
	if err := scheduler.Start(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if rdb != nil {
		g.Go(func() error {
			return pubsub.NewSubscriber(rdb).Subscribe(ctx, func(msg *pubsub.BalanceMessage) {
				if err := service.PushBalance(hub, msg); err != nil {
					log.Warn().Err(err).Str("user_id", msg.UserID).Msg("ws: balance push failed")
				}
			})
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.CloseAll()
		scheduler.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// newVault prefers the dedicated key and falls back to one derived from the session secret
func newVault(cfg *config.Config) (*vault.Vault, error) {
	if cfg.Credentials.EncryptionKey != "" {
		v, err := vault.New(cfg.Credentials.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("credentials.encryption_key: %w", err)
		}
		return v, nil
	}

	log.Warn().Msg("credentials.encryption_key not set: deriving the credential key from jwt.secret")
	return vault.FromSecret(cfg.JWT.Secret)
}
