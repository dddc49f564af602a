// Package jobs runs periodic maintenance. The sweep surfaces records
// stuck before a terminal status: a photo sitting in pending or
// processing past the threshold means a lost or still-retrying job, and
// there is no user-facing escalation for that, so it has to show up in
// the logs where alerting can catch it.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"photobucket/internal/config"
	"photobucket/internal/models"
)

type StuckScanner interface {
	ScanStuck(ctx context.Context, cutoff time.Time) ([]models.Photo, error)
}

type Sweeper struct {
	cron      *cron.Cron
	store     StuckScanner
	threshold time.Duration
	schedule  string
	log       zerolog.Logger
}

func NewSweeper(store StuckScanner, cfg config.EnrichConfig, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		cron:      cron.New(cron.WithSeconds()),
		store:     store,
		threshold: cfg.StuckThreshold,
		schedule:  cfg.SweepSchedule,
		log:       log,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for a running sweep.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.threshold)
	stuck, err := s.store.ScanStuck(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("stuck-photo sweep failed")
		return
	}

	for _, photo := range stuck {
		s.log.Warn().
			Str("photo_id", photo.PhotoID).
			Str("owner", photo.OwnerID).
			Str("status", string(photo.Status)).
			Str("created_at", photo.CreatedAt).
			Msg("photo stuck before terminal status")
	}
	if len(stuck) > 0 {
		s.log.Warn().Int("count", len(stuck)).Msg("stuck-photo sweep found records")
	}
}
