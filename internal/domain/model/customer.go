package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"isp-hotspot-billing/internal/domain"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is a hotspot subscriber identified by device MAC.
type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	MAC           MAC             `json:"mac_address"`
	PlanID        *string         `json:"plan_id"`
	RouterID      *string         `json:"router_id"`
	UserID        *string         `json:"user_id"` // owning reseller account
	Status        CustomerStatus  `json:"status"`
	Expiry        *time.Time      `json:"expiry"`
	PendingUpdate json.RawMessage `json:"pending_update"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PendingUpdate is a deferred plan/router change staged on a customer. It is
// applied, then cleared, by the first confirmed payment that follows.
type PendingUpdate struct {
	DurationValue int          `json:"duration_value"`
	DurationUnit  DurationUnit `json:"duration_unit"`
	PlanID        string       `json:"plan_id"`
	RouterID      string       `json:"router_id"`
}

// DecodePendingUpdate strictly decodes the staged payload. Unknown fields,
// malformed JSON, and missing references all reject the whole payload so a
// half-applied change can never reach the ledger.
func DecodePendingUpdate(raw json.RawMessage) (*PendingUpdate, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var pu PendingUpdate
	if err := dec.Decode(&pu); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPendingUpdate, err)
	}
	if pu.DurationValue <= 0 || pu.PlanID == "" || pu.RouterID == "" {
		return nil, fmt.Errorf("%w: incomplete payload", domain.ErrInvalidPendingUpdate)
	}
	if pu.DurationUnit != DurationHours && pu.DurationUnit != DurationDays {
		return nil, fmt.Errorf("%w: duration unit %q", domain.ErrInvalidPendingUpdate, pu.DurationUnit)
	}
	return &pu, nil
}
