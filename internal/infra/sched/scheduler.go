package sched

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler owns the cron runner for the background workers.
type Scheduler struct {
	cron *cron.Cron
	log  *zerolog.Logger
}

func NewScheduler(logger *zerolog.Logger) *Scheduler {
	l := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{cron: cron.New(), log: &l}
}

// Add registers a job under the given cron spec (standard 5-field syntax).
func (s *Scheduler) Add(spec string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() { job(context.Background()) })
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cron scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("cron scheduler stopped")
}
