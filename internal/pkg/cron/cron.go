package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/agentpilot/web/config"
	"github.com/agentpilot/web/internal/metrics"
)

const jobTimeout = 5 * time.Minute

// LinkCodeStore clears codes past their expiry
type LinkCodeStore interface {
	ClearExpiredLinkCodes(ctx context.Context, now time.Time) (int64, error)
}

// EventStore drops processed webhook records past retention
type EventStore interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service scheduled maintenance, UTC schedules
type Service struct {
	scheduler  *cron.Cron
	linkCodes  LinkCodeStore
	events     EventStore
	cfg        config.CronConfig
	retainDays int
	now        func() time.Time
}

func NewService(linkCodes LinkCodeStore, events EventStore, cfg config.CronConfig) *Service {
	retain := cfg.EventRetainDays
	if retain <= 0 {
		retain = 90
	}
	return &Service{
		scheduler:  cron.New(cron.WithLocation(time.UTC)),
		linkCodes:  linkCodes,
		events:     events,
		cfg:        cfg,
		retainDays: retain,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the maintenance jobs and starts the scheduler
func (s *Service) Start() error {
	if s.cfg.LinkCodeSweep != "" {
		if _, err := s.scheduler.AddFunc(s.cfg.LinkCodeSweep, s.job("link_code_sweep", s.SweepLinkCodes)); err != nil {
			return fmt.Errorf("schedule link code sweep %q: %w", s.cfg.LinkCodeSweep, err)
		}
	}
	if s.cfg.EventPrune != "" {
		if _, err := s.scheduler.AddFunc(s.cfg.EventPrune, s.job("event_prune", s.PruneEvents)); err != nil {
			return fmt.Errorf("schedule event prune %q: %w", s.cfg.EventPrune, err)
		}
	}

	s.scheduler.Start()
	log.Info().
		Str("link_code_sweep", s.cfg.LinkCodeSweep).
		Str("event_prune", s.cfg.EventPrune).
		Int("event_retain_days", s.retainDays).
		Msg("cron: scheduler started")
	return nil
}

// Stop waits for running jobs up to the context deadline
func (s *Service) Stop(ctx context.Context) {
	done := s.scheduler.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("cron: scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("cron: forced stop before running jobs finished")
	}
}

func (s *Service) job(name string, fn func(context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := fn(ctx)
		if err != nil {
			log.Error().Err(err).Str("job", name).Msg("cron: job failed")
			return
		}
		if n > 0 {
			log.Info().Str("job", name).Int64("removed", n).Msg("cron: job finished")
		}
	}
}

// SweepLinkCodes nulls every linking code whose expiry has passed
func (s *Service) SweepLinkCodes(ctx context.Context) (int64, error) {
	n, err := s.linkCodes.ClearExpiredLinkCodes(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.MaintenanceRemoved.WithLabelValues("link_codes").Add(float64(n))
	return n, nil
}

// PruneEvents deletes webhook records older than the retention window
func (s *Service) PruneEvents(ctx context.Context) (int64, error) {
	n, err := s.events.PruneBefore(ctx, s.EventCutoff())
	if err != nil {
		return 0, err
	}
	metrics.MaintenanceRemoved.WithLabelValues("webhook_events").Add(float64(n))
	return n, nil
}

// EventCutoff events processed before this are pruned
func (s *Service) EventCutoff() time.Time {
	return s.now().AddDate(0, 0, -s.retainDays)
}

// RunNow runs every job once, used by the cleanup command
func (s *Service) RunNow(ctx context.Context) (codes, events int64, err error) {
	if codes, err = s.SweepLinkCodes(ctx); err != nil {
		return 0, 0, fmt.Errorf("sweep link codes: %w", err)
	}
	if events, err = s.PruneEvents(ctx); err != nil {
		return codes, 0, fmt.Errorf("prune webhook events: %w", err)
	}
	return codes, events, nil
}
