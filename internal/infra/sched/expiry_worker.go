package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/infra/metrics"
	"isp-hotspot-billing/internal/usecase"
)

// ExpiryWorker sweeps lapsed customers into the inactive state.
type ExpiryWorker struct {
	expiry usecase.ExpiryUseCase
	log    *zerolog.Logger
}

func NewExpiryWorker(expiry usecase.ExpiryUseCase, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{expiry: expiry, log: &l}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := w.expiry.DeactivateExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		metrics.AddCustomersExpired(n)
	}
}
