package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/infra/logging"
)

// Compile-time check
var _ ExpiryUseCase = (*expiryUC)(nil)

// ExpiryUseCase deactivates customers whose paid window has lapsed. This is
// ledger-side only; routers cut the device off on their own via limit-uptime.
type ExpiryUseCase interface {
	DeactivateExpired(ctx context.Context) (int, error)
}

type expiryUC struct {
	customers repository.CustomerRepository
	tm        repository.TransactionManager
	batchSize int
	log       *zerolog.Logger
}

func NewExpiryUseCase(customers repository.CustomerRepository, tm repository.TransactionManager, logger *zerolog.Logger) *expiryUC {
	l := logger.With().Str("component", "ExpiryUC").Logger()
	return &expiryUC{customers: customers, tm: tm, batchSize: 200, log: &l}
}

func (u *expiryUC) DeactivateExpired(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "ExpiryUC.DeactivateExpired")()

	total := 0
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		expired, err := u.customers.ListExpiredActive(ctx, tx, time.Now(), u.batchSize)
		if err != nil {
			return err
		}
		for _, c := range expired {
			if err := u.customers.SetStatus(ctx, tx, c.ID, model.CustomerStatusInactive); err != nil {
				return err
			}
			total++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		u.log.Info().Int("count", total).Msg("expired customers deactivated")
	}
	return total, nil
}
