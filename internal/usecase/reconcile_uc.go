package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase turns asynchronous gateway payment events into durable
// ledger state. It never talks to routers; a non-nil Intent on the result is
// handed to the provisioning worker by the caller after this returns.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, ev model.PaymentEvent) (*model.ReconcileResult, error)
}

type reconcileUC struct {
	customers repository.CustomerRepository
	plans     repository.PlanRepository
	routers   repository.RouterRepository
	records   repository.PaymentRecordRepository
	txns      repository.TransactionRecordRepository
	tm        repository.TransactionManager
	validate  *validator.Validate
	profile   string // hotspot profile for provisioned users
	log       *zerolog.Logger
}

func NewReconcileUseCase(
	customers repository.CustomerRepository,
	plans repository.PlanRepository,
	routers repository.RouterRepository,
	records repository.PaymentRecordRepository,
	txns repository.TransactionRecordRepository,
	tm repository.TransactionManager,
	profile string,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	if profile == "" {
		profile = "default"
	}
	return &reconcileUC{
		customers: customers,
		plans:     plans,
		routers:   routers,
		records:   records,
		txns:      txns,
		tm:        tm,
		validate:  validator.New(),
		profile:   profile,
		log:       &l,
	}
}

func (u *reconcileUC) Reconcile(ctx context.Context, ev model.PaymentEvent) (*model.ReconcileResult, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Reconcile")()

	if err := u.validate.Struct(&ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	mac, err := model.ParseMAC(ev.CustomerRef)
	if err != nil {
		return nil, err
	}

	var res *model.ReconcileResult
	switch ev.Status {
	case model.PaymentStatusCompleted:
		res, err = u.applyCompleted(ctx, mac, ev)
	case model.PaymentStatusFailed:
		res, err = u.applyFailed(ctx, mac, ev)
	default:
		res, err = u.acknowledgeOther(ctx, mac, ev)
	}
	if err != nil {
		return nil, err
	}
	metrics.IncPaymentEvent(ev.Status, string(res.Action))
	return res, nil
}

// applyCompleted runs the billing effects of a confirmed payment in one
// transaction: resolve the customer row under lock, work out the access
// window, move the expiry, activate, clear any staged change, and settle the
// gateway transaction row. The audit record is written after commit so a
// failing audit insert can never roll back granted access.
func (u *reconcileUC) applyCompleted(ctx context.Context, mac model.MAC, ev model.PaymentEvent) (*model.ReconcileResult, error) {
	var (
		res    *model.ReconcileResult
		record *model.PaymentRecord
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		customer, err := u.customers.FindByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}

		// A checkout id already settled as completed means the gateway
		// re-delivered the callback: acknowledge without a second extension.
		if ev.CheckoutRequestID != "" {
			prior, err := u.txns.FindByCheckoutID(ctx, tx, ev.CheckoutRequestID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if prior != nil && prior.Status == model.TxStatusCompleted {
				u.log.Info().Str("checkout_request_id", ev.CheckoutRequestID).
					Str("mac", mac.String()).Msg("duplicate completed callback ignored")
				res = &model.ReconcileResult{
					Action:     model.ReconcileDuplicate,
					Status:     ev.Status,
					CustomerID: customer.ID,
				}
				return nil
			}
		}

		durationValue, durationUnit, plan, router, err := u.resolveWindow(ctx, tx, customer)
		if err != nil {
			return err
		}

		duration, err := model.AccessDuration(durationValue, durationUnit)
		if err != nil {
			return err
		}
		days := model.BillingDays(durationValue, durationUnit)

		now := time.Now()
		var expiry time.Time
		if customer.Expiry != nil && customer.Expiry.After(now) {
			expiry = customer.Expiry.Add(duration)
		} else {
			expiry = now.Add(duration)
		}

		customer.Expiry = &expiry
		customer.PlanID = &plan.ID
		customer.RouterID = &router.ID
		customer.Status = model.CustomerStatusActive
		customer.PendingUpdate = nil
		if err := u.customers.Update(ctx, tx, customer); err != nil {
			return err
		}

		if ev.CheckoutRequestID != "" {
			var receipt *string
			if ev.ReceiptNumber != "" {
				receipt = &ev.ReceiptNumber
			}
			matched, err := u.txns.MarkStatus(ctx, tx, ev.CheckoutRequestID, model.TxStatusCompleted, receipt, 0, ev.ResultDesc)
			if err != nil {
				return err
			}
			if !matched {
				u.log.Warn().Str("checkout_request_id", ev.CheckoutRequestID).
					Msg("callback references unknown checkout request")
			}
		}

		record = &model.PaymentRecord{
			ID:          uuid.NewString(),
			CustomerID:  customer.ID,
			ResellerID:  customer.UserID,
			Amount:      ev.Amount,
			Method:      model.PaymentMethodMobileMoney,
			DaysPaidFor: days,
			Reference:   ev.LipayTxNo,
			Notes:       fmt.Sprintf("Gateway payment via callback (%s)", ev.LipayTxNo),
			Status:      "completed",
			CreatedAt:   now,
		}

		res = &model.ReconcileResult{
			Action:      model.ReconcileApplied,
			Status:      ev.Status,
			CustomerID:  customer.ID,
			NewExpiry:   &expiry,
			DaysPaidFor: days,
			Intent: &model.ProvisioningIntent{
				MAC:            mac,
				Username:       mac.Username(),
				Password:       mac.Username(),
				Profile:        u.profile,
				UptimeLimit:    model.UptimeLimit(durationValue, durationUnit),
				BandwidthLimit: plan.Speed,
				Comment:        fmt.Sprintf("Payment confirmed for %s on %s", customer.Name, now.Format(time.RFC3339)),
				Router:         *router,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Action == model.ReconcileApplied {
		metrics.AddPaymentRevenue(ev.Amount)
		if err := u.records.Save(ctx, nil, record); err != nil {
			// Degraded audit, not degraded service.
			metrics.IncAuditDegraded()
			u.log.Error().Err(err).Str("customer_id", record.CustomerID).
				Str("reference", record.Reference).Msg("payment audit record not persisted")
		}
	}
	return res, nil
}

// resolveWindow picks the access window and targets for this payment: a
// staged pending update wins over the customer's current plan and router.
func (u *reconcileUC) resolveWindow(ctx context.Context, tx repository.Tx, c *model.Customer) (int, model.DurationUnit, *model.Plan, *model.Router, error) {
	if len(c.PendingUpdate) > 0 {
		pu, err := model.DecodePendingUpdate(c.PendingUpdate)
		if err != nil {
			return 0, "", nil, nil, err
		}
		plan, err := u.plans.FindByID(ctx, tx, pu.PlanID)
		if err != nil {
			return 0, "", nil, nil, fmt.Errorf("%w: pending update plan %s", domain.ErrNotFound, pu.PlanID)
		}
		router, err := u.routers.FindByID(ctx, tx, pu.RouterID)
		if err != nil {
			return 0, "", nil, nil, fmt.Errorf("%w: pending update router %s", domain.ErrNotFound, pu.RouterID)
		}
		return pu.DurationValue, pu.DurationUnit, plan, router, nil
	}

	if c.PlanID == nil || c.RouterID == nil {
		return 0, "", nil, nil, domain.ErrMissingConfiguration
	}
	plan, err := u.plans.FindByID(ctx, tx, *c.PlanID)
	if err != nil {
		return 0, "", nil, nil, fmt.Errorf("%w: plan %s", domain.ErrMissingConfiguration, *c.PlanID)
	}
	router, err := u.routers.FindByID(ctx, tx, *c.RouterID)
	if err != nil {
		return 0, "", nil, nil, fmt.Errorf("%w: router %s", domain.ErrMissingConfiguration, *c.RouterID)
	}
	return plan.DurationValue, plan.DurationUnit, plan, router, nil
}

// applyFailed deactivates the customer and settles the transaction row.
// Expiry, plan, and any staged pending update are left untouched.
func (u *reconcileUC) applyFailed(ctx context.Context, mac model.MAC, ev model.PaymentEvent) (*model.ReconcileResult, error) {
	var res *model.ReconcileResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		customer, err := u.customers.FindByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}
		if err := u.customers.SetStatus(ctx, tx, customer.ID, model.CustomerStatusInactive); err != nil {
			return err
		}
		if ev.CheckoutRequestID != "" {
			if _, err := u.txns.MarkStatus(ctx, tx, ev.CheckoutRequestID, model.TxStatusFailed, nil, 1, ev.ResultDesc); err != nil {
				return err
			}
		}
		res = &model.ReconcileResult{
			Action:     model.ReconcileDeactivated,
			Status:     ev.Status,
			CustomerID: customer.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("mac", mac.String()).Str("customer_id", res.CustomerID).Msg("payment failed, customer deactivated")
	return res, nil
}

// acknowledgeOther handles statuses this service does not act on. The
// customer must still resolve so gateway retries of garbage stay visible.
func (u *reconcileUC) acknowledgeOther(ctx context.Context, mac model.MAC, ev model.PaymentEvent) (*model.ReconcileResult, error) {
	customer, err := u.customers.FindByMAC(ctx, nil, mac)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("status", ev.Status).Str("mac", mac.String()).Msg("payment status not actionable, acknowledged")
	return &model.ReconcileResult{
		Action:     model.ReconcileIgnored,
		Status:     ev.Status,
		CustomerID: customer.ID,
	}, nil
}
