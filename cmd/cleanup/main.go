package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/database"
	"github.com/agentpilot/web/internal/pkg/cron"
	"github.com/agentpilot/web/internal/pkg/logging"
	"github.com/agentpilot/web/internal/repository"
)

var (
	dryRun     = flag.Bool("dry-run", true, "Only count what would be removed")
	retainDays = flag.Int("retain-days", 0, "Override cron.event_retain_days")
	timeout    = flag.Duration("timeout", 5*time.Minute, "Give up after this long")
)

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     cfg.Log.Level,
		Component: "cleanup",
	})

	db, err := database.Open(&cfg.Database, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *retainDays > 0 {
		cfg.Cron.EventRetainDays = *retainDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	profiles := repository.NewProfileRepository(db)
	events := repository.NewWebhookEventRepository(db)
	jobs := cron.NewService(profiles, events, cfg.Cron)

	if *dryRun {
		codes, err := profiles.CountExpiredLinkCodes(ctx, time.Now().UTC())
		if err != nil {
			log.Fatal().Err(err).Msg("count expired link codes")
		}
		cutoff := jobs.EventCutoff()
		old, err := events.CountBefore(ctx, cutoff)
		if err != nil {
			log.Fatal().Err(err).Msg("count webhook events")
		}
		log.Info().
			Bool("dry_run", true).
			Int64("link_codes", codes).
			Int64("webhook_events", old).
			Time("cutoff", cutoff).
			Msg("cleanup: nothing removed")
		return
	}

	codes, old, err := jobs.RunNow(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup failed")
	}
	log.Info().
		Int64("link_codes", codes).
		Int64("webhook_events", old).
		Msg("cleanup: done")
}
