package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRecordRepository = (*paymentRecordRepo)(nil)

type paymentRecordRepo struct{ pool *pgxpool.Pool }

func NewPaymentRecordRepo(pool *pgxpool.Pool) *paymentRecordRepo {
	return &paymentRecordRepo{pool: pool}
}

func (r *paymentRecordRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	const q = `
INSERT INTO customer_payments (
  id, customer_id, reseller_id, amount, method, days_paid_for, reference, notes, status, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.CustomerID, p.ResellerID, p.Amount, p.Method, p.DaysPaidFor, p.Reference, p.Notes, p.Status, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
