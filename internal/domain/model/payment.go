package model

import "time"

// PaymentEvent is the untrusted gateway notification delivered to the
// payment callback. customer_ref carries the device MAC in any accepted form.
type PaymentEvent struct {
	CustomerRef       string  `json:"customer_ref" validate:"required"`
	Status            string  `json:"status" validate:"required"`
	Amount            float64 `json:"amount" validate:"gte=0"`
	LipayTxNo         string  `json:"lipay_tx_no"`
	CheckoutRequestID string  `json:"checkout_request_id"`
	ReceiptNumber     string  `json:"receipt_number"`
	ResultDesc        string  `json:"result_desc"`
}

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodCash        PaymentMethod = "cash"
)

// PaymentRecord is an append-only audit row for a confirmed payment.
type PaymentRecord struct {
	ID          string        `json:"id"`
	CustomerID  string        `json:"customer_id"`
	ResellerID  *string       `json:"reseller_id"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"method"`
	DaysPaidFor int           `json:"days_paid_for"`
	Reference   string        `json:"reference"`
	Notes       string        `json:"notes"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusExpired   TransactionStatus = "expired"
)

// TransactionRecord tracks a gateway checkout through its lifecycle, keyed by
// the gateway's checkout request id.
type TransactionRecord struct {
	ID                string            `json:"id"`
	CheckoutRequestID string            `json:"checkout_request_id"`
	Amount            float64           `json:"amount"`
	Reference         string            `json:"reference"`
	ReceiptNumber     *string           `json:"receipt_number"`
	ResultCode        *int              `json:"result_code"`
	ResultDesc        *string           `json:"result_desc"`
	Status            TransactionStatus `json:"status"`
	CustomerID        *string           `json:"customer_id"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ReconcileAction says what a payment event did to the ledger.
type ReconcileAction string

const (
	ReconcileApplied     ReconcileAction = "applied"
	ReconcileDeactivated ReconcileAction = "deactivated"
	ReconcileIgnored     ReconcileAction = "ignored"
	ReconcileDuplicate   ReconcileAction = "duplicate"
)

// ReconcileResult is the outcome of processing one PaymentEvent. Intent is
// non-nil only when access should be (re)provisioned on the router.
type ReconcileResult struct {
	Action      ReconcileAction     `json:"action"`
	Status      string              `json:"status"` // gateway status, verbatim
	CustomerID  string              `json:"customer_id,omitempty"`
	NewExpiry   *time.Time          `json:"new_expiry,omitempty"`
	DaysPaidFor int                 `json:"days_paid_for,omitempty"`
	Intent      *ProvisioningIntent `json:"-"`
}
