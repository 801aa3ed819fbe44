package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
)

var _ repository.TransactionRecordRepository = (*transactionRecordRepo)(nil)

type transactionRecordRepo struct{ pool *pgxpool.Pool }

func NewTransactionRecordRepo(pool *pgxpool.Pool) *transactionRecordRepo {
	return &transactionRecordRepo{pool: pool}
}

func (r *transactionRecordRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, checkoutRequestID string) (*model.TransactionRecord, error) {
	q := `SELECT id, checkout_request_id, amount, reference, receipt_number, result_code, result_desc, status, customer_id, created_at, updated_at FROM gateway_transactions WHERE checkout_request_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	rec := &model.TransactionRecord{}
	if err := row.Scan(&rec.ID, &rec.CheckoutRequestID, &rec.Amount, &rec.Reference, &rec.ReceiptNumber, &rec.ResultCode, &rec.ResultDesc, &rec.Status, &rec.CustomerID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

// MarkStatus settles the transaction row for a checkout id. A zero match
// count is reported, not treated as an error: the gateway may reference
// checkouts this service never issued.
func (r *transactionRecordRepo) MarkStatus(ctx context.Context, tx repository.Tx, checkoutRequestID string, status model.TransactionStatus, receipt *string, resultCode int, resultDesc string) (bool, error) {
	const q = `
UPDATE gateway_transactions
   SET status=$2,
       receipt_number=COALESCE($3, receipt_number),
       result_code=$4,
       result_desc=$5,
       updated_at=NOW()
 WHERE checkout_request_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, checkoutRequestID, string(status), receipt, resultCode, resultDesc)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
