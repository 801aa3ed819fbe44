package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/usecase"
)

// DriftWorker walks every known router and refreshes its drift report, so the
// drift gauges stay current even when nobody calls the sync endpoint.
type DriftWorker struct {
	routers repository.RouterRepository
	devices usecase.DeviceUseCase
	log     *zerolog.Logger
}

func NewDriftWorker(routers repository.RouterRepository, devices usecase.DeviceUseCase, logger *zerolog.Logger) *DriftWorker {
	l := logger.With().Str("component", "DriftWorker").Logger()
	return &DriftWorker{routers: routers, devices: devices, log: &l}
}

func (w *DriftWorker) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	routers, err := w.routers.ListAll(ctx, nil)
	if err != nil {
		w.log.Error().Err(err).Msg("listing routers failed")
		return
	}
	for _, router := range routers {
		report, err := w.devices.Sync(ctx, router.ID)
		if err != nil {
			// unreachable routers are expected in the field, keep walking
			w.log.Warn().Str("router", router.Name).Err(err).Msg("drift check failed")
			continue
		}
		if len(report.OnlyInRouter) > 0 || len(report.OnlyInLedger) > 0 {
			w.log.Warn().Str("router", router.Name).
				Int("only_in_router", len(report.OnlyInRouter)).
				Int("only_in_ledger", len(report.OnlyInLedger)).
				Int("synced", report.Synced).
				Msg("router drift detected")
		}
	}
}
