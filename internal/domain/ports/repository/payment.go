package repository

import (
	"context"

	"isp-hotspot-billing/internal/domain/model"
)

type PaymentRecordRepository interface {
	// Save appends one audit row. Append-only; there is no update path.
	Save(ctx context.Context, tx Tx, p *model.PaymentRecord) error
}

type TransactionRecordRepository interface {
	FindByCheckoutID(ctx context.Context, tx Tx, checkoutRequestID string) (*model.TransactionRecord, error)
	// MarkStatus updates the record keyed by checkoutRequestID and reports
	// whether a row matched. An unknown key is (false, nil), not an error.
	MarkStatus(ctx context.Context, tx Tx, checkoutRequestID string, status model.TransactionStatus, receipt *string, resultCode int, resultDesc string) (bool, error)
}
