//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/usecase"
)

const testMAC = model.MAC("AA:BB:CC:DD:EE:FF")

func testPlan() *model.Plan {
	return &model.Plan{
		ID:            "plan-1",
		Name:          "Home 5M",
		Speed:         "5M/5M",
		Price:         500,
		DurationValue: 30,
		DurationUnit:  model.DurationDays,
	}
}

func testRouter() *model.Router {
	return &model.Router{ID: "router-1", Name: "Main Gateway", IPAddress: "10.0.0.1", Username: "api", Password: "secret", Port: 8728}
}

func testCustomer() *model.Customer {
	return &model.Customer{
		ID:       "cust-1",
		Name:     "Jane Doe",
		MAC:      testMAC,
		PlanID:   strPtr("plan-1"),
		RouterID: strPtr("router-1"),
		UserID:   strPtr("reseller-1"),
		Status:   model.CustomerStatusInactive,
	}
}

type reconcileFixture struct {
	customers *MockCustomerRepo
	plans     *MockPlanRepo
	routers   *MockRouterRepo
	records   *MockPaymentRecordRepo
	txns      *MockTransactionRecordRepo
	uc        usecase.ReconcileUseCase
}

func newReconcileFixture(customer *model.Customer, txns ...*model.TransactionRecord) *reconcileFixture {
	f := &reconcileFixture{
		customers: NewMockCustomerRepo(customer),
		plans:     NewMockPlanRepo(testPlan()),
		routers:   NewMockRouterRepo(testRouter()),
		records:   &MockPaymentRecordRepo{},
		txns:      NewMockTransactionRecordRepo(txns...),
	}
	f.uc = usecase.NewReconcileUseCase(f.customers, f.plans, f.routers, f.records, f.txns, &MockTxManager{}, "default", newTestLogger())
	return f
}

func completedEvent() model.PaymentEvent {
	return model.PaymentEvent{
		CustomerRef:       "aa:bb:cc:dd:ee:ff",
		Status:            model.PaymentStatusCompleted,
		Amount:            500,
		LipayTxNo:         "LP-001",
		CheckoutRequestID: "ws_CO_123",
		ReceiptNumber:     "RCP777",
	}
}

func TestReconcileCompletedActivatesAndExtends(t *testing.T) {
	f := newReconcileFixture(testCustomer(), &model.TransactionRecord{CheckoutRequestID: "ws_CO_123", Status: model.TxStatusPending})

	before := time.Now()
	res, err := f.uc.Reconcile(context.Background(), completedEvent())
	after := time.Now()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if res.Action != model.ReconcileApplied {
		t.Fatalf("action = %s", res.Action)
	}
	if res.DaysPaidFor != 30 {
		t.Errorf("days paid for = %d, want 30", res.DaysPaidFor)
	}

	c := f.customers.Get("cust-1")
	if c.Status != model.CustomerStatusActive {
		t.Errorf("customer status = %s", c.Status)
	}
	if c.Expiry == nil {
		t.Fatal("expiry not set")
	}
	lo := before.Add(30 * 24 * time.Hour)
	hi := after.Add(30 * 24 * time.Hour)
	if c.Expiry.Before(lo) || c.Expiry.After(hi) {
		t.Errorf("expiry %v outside [%v, %v]", c.Expiry, lo, hi)
	}

	// expired window resets from now, a live window extends from its end
	if rec := f.txns.Get("ws_CO_123"); rec.Status != model.TxStatusCompleted {
		t.Errorf("transaction status = %s", rec.Status)
	} else if rec.ReceiptNumber == nil || *rec.ReceiptNumber != "RCP777" {
		t.Errorf("receipt = %v", rec.ReceiptNumber)
	}

	if len(f.records.Saved) != 1 {
		t.Fatalf("payment records saved = %d", len(f.records.Saved))
	}
	if f.records.Saved[0].DaysPaidFor != 30 || f.records.Saved[0].Amount != 500 {
		t.Errorf("audit record = %+v", f.records.Saved[0])
	}

	if res.Intent == nil {
		t.Fatal("no provisioning intent")
	}
	if res.Intent.Username != "AABBCCDDEEFF" || res.Intent.UptimeLimit != "30d" || res.Intent.BandwidthLimit != "5M/5M" {
		t.Errorf("intent = %+v", res.Intent)
	}
	if res.Intent.Router.ID != "router-1" {
		t.Errorf("intent router = %s", res.Intent.Router.ID)
	}
}

func TestReconcileCompletedExtendsFutureExpiry(t *testing.T) {
	customer := testCustomer()
	future := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	customer.Expiry = timePtr(future)
	f := newReconcileFixture(customer)

	ev := completedEvent()
	ev.CheckoutRequestID = ""
	if _, err := f.uc.Reconcile(context.Background(), ev); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := future.Add(30 * 24 * time.Hour)
	got := f.customers.Get("cust-1").Expiry
	if got == nil || !got.Equal(want) {
		t.Errorf("expiry = %v, want %v (stacked on remaining time)", got, want)
	}
}

func TestReconcileHourlyPlanBillsWholeDays(t *testing.T) {
	customer := testCustomer()
	f := newReconcileFixture(customer)
	f.plans = NewMockPlanRepo(&model.Plan{
		ID: "plan-1", Name: "Night 6h", Speed: "10M/10M",
		DurationValue: 6, DurationUnit: model.DurationHours,
	})
	f.uc = usecase.NewReconcileUseCase(f.customers, f.plans, f.routers, f.records, f.txns, &MockTxManager{}, "default", newTestLogger())

	ev := completedEvent()
	ev.CheckoutRequestID = ""
	res, err := f.uc.Reconcile(context.Background(), ev)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.DaysPaidFor != 1 {
		t.Errorf("days paid for = %d, want 1 (6h rounds up to a day)", res.DaysPaidFor)
	}
	if res.Intent.UptimeLimit != "6h" {
		t.Errorf("uptime limit = %s", res.Intent.UptimeLimit)
	}
}

func TestReconcileAppliesAndClearsPendingUpdate(t *testing.T) {
	customer := testCustomer()
	customer.PendingUpdate = json.RawMessage(`{"duration_value":7,"duration_unit":"DAYS","plan_id":"plan-2","router_id":"router-2"}`)
	f := newReconcileFixture(customer)
	f.plans = NewMockPlanRepo(testPlan(), &model.Plan{
		ID: "plan-2", Name: "Turbo", Speed: "20M/20M",
		DurationValue: 30, DurationUnit: model.DurationDays,
	})
	f.routers = NewMockRouterRepo(testRouter(), &model.Router{ID: "router-2", Name: "Annex", IPAddress: "10.0.0.2"})
	f.uc = usecase.NewReconcileUseCase(f.customers, f.plans, f.routers, f.records, f.txns, &MockTxManager{}, "default", newTestLogger())

	ev := completedEvent()
	ev.CheckoutRequestID = ""
	res, err := f.uc.Reconcile(context.Background(), ev)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// the staged change wins over the current plan, then is consumed
	if res.DaysPaidFor != 7 {
		t.Errorf("days paid for = %d, want 7 from pending update", res.DaysPaidFor)
	}
	c := f.customers.Get("cust-1")
	if c.PendingUpdate != nil {
		t.Error("pending update not cleared")
	}
	if c.PlanID == nil || *c.PlanID != "plan-2" {
		t.Errorf("plan id = %v", c.PlanID)
	}
	if c.RouterID == nil || *c.RouterID != "router-2" {
		t.Errorf("router id = %v", c.RouterID)
	}
	if res.Intent.BandwidthLimit != "20M/20M" || res.Intent.Router.ID != "router-2" {
		t.Errorf("intent = %+v", res.Intent)
	}
}

func TestReconcileMalformedPendingUpdateAborts(t *testing.T) {
	customer := testCustomer()
	customer.PendingUpdate = json.RawMessage(`{"duration_value":`)
	f := newReconcileFixture(customer)

	_, err := f.uc.Reconcile(context.Background(), completedEvent())
	if !errors.Is(err, domain.ErrInvalidPendingUpdate) {
		t.Fatalf("err = %v, want ErrInvalidPendingUpdate", err)
	}

	c := f.customers.Get("cust-1")
	if c.Status != model.CustomerStatusInactive || c.Expiry != nil {
		t.Error("billing effects applied despite malformed pending update")
	}
	if c.PendingUpdate == nil {
		t.Error("malformed payload must stay for inspection")
	}
}

func TestReconcileMissingConfiguration(t *testing.T) {
	customer := testCustomer()
	customer.PlanID = nil
	f := newReconcileFixture(customer)

	_, err := f.uc.Reconcile(context.Background(), completedEvent())
	if !errors.Is(err, domain.ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
}

func TestReconcileDuplicateCompletedIsNoOp(t *testing.T) {
	customer := testCustomer()
	expiry := time.Now().Add(10 * 24 * time.Hour).Truncate(time.Second)
	customer.Expiry = timePtr(expiry)
	customer.Status = model.CustomerStatusActive
	f := newReconcileFixture(customer, &model.TransactionRecord{
		CheckoutRequestID: "ws_CO_123",
		Status:            model.TxStatusCompleted,
	})

	res, err := f.uc.Reconcile(context.Background(), completedEvent())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != model.ReconcileDuplicate {
		t.Fatalf("action = %s, want duplicate", res.Action)
	}
	if res.Intent != nil {
		t.Error("duplicate delivery produced a provisioning intent")
	}
	got := f.customers.Get("cust-1").Expiry
	if got == nil || !got.Equal(expiry) {
		t.Errorf("expiry moved on duplicate delivery: %v", got)
	}
	if len(f.records.Saved) != 0 {
		t.Error("duplicate delivery appended an audit record")
	}
}

func TestReconcileAuditFailureDoesNotAbort(t *testing.T) {
	f := newReconcileFixture(testCustomer())
	f.records.SaveFunc = func(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
		return domain.ErrOperationFailed
	}

	res, err := f.uc.Reconcile(context.Background(), completedEvent())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != model.ReconcileApplied {
		t.Fatalf("action = %s", res.Action)
	}
	if f.customers.Get("cust-1").Status != model.CustomerStatusActive {
		t.Error("customer update lost because the audit write failed")
	}
}

func TestReconcileFailedDeactivatesOnly(t *testing.T) {
	customer := testCustomer()
	expiry := time.Now().Add(5 * 24 * time.Hour).Truncate(time.Second)
	customer.Expiry = timePtr(expiry)
	customer.Status = model.CustomerStatusActive
	customer.PendingUpdate = json.RawMessage(`{"duration_value":7,"duration_unit":"DAYS","plan_id":"plan-1","router_id":"router-1"}`)
	f := newReconcileFixture(customer, &model.TransactionRecord{CheckoutRequestID: "ws_CO_123", Status: model.TxStatusPending})

	ev := completedEvent()
	ev.Status = model.PaymentStatusFailed
	res, err := f.uc.Reconcile(context.Background(), ev)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != model.ReconcileDeactivated || res.Intent != nil {
		t.Fatalf("result = %+v", res)
	}

	c := f.customers.Get("cust-1")
	if c.Status != model.CustomerStatusInactive {
		t.Errorf("status = %s", c.Status)
	}
	if c.Expiry == nil || !c.Expiry.Equal(expiry) {
		t.Error("failed payment must not touch expiry")
	}
	if c.PendingUpdate == nil {
		t.Error("failed payment must not consume the pending update")
	}
	if rec := f.txns.Get("ws_CO_123"); rec.Status != model.TxStatusFailed {
		t.Errorf("transaction status = %s", rec.Status)
	}
}

func TestReconcileUnknownStatusAcknowledged(t *testing.T) {
	customer := testCustomer()
	customer.Status = model.CustomerStatusActive
	f := newReconcileFixture(customer)

	ev := completedEvent()
	ev.Status = "processing"
	res, err := f.uc.Reconcile(context.Background(), ev)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != model.ReconcileIgnored || res.Status != "processing" {
		t.Fatalf("result = %+v", res)
	}
	if f.customers.Get("cust-1").Status != model.CustomerStatusActive {
		t.Error("non-actionable status mutated the customer")
	}
}

func TestReconcileUnknownCustomer(t *testing.T) {
	f := newReconcileFixture(testCustomer())
	ev := completedEvent()
	ev.CustomerRef = "11:22:33:44:55:66"
	if _, err := f.uc.Reconcile(context.Background(), ev); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReconcileInvalidEvent(t *testing.T) {
	f := newReconcileFixture(testCustomer())
	cases := []model.PaymentEvent{
		{Status: model.PaymentStatusCompleted, Amount: 10},             // missing ref
		{CustomerRef: "aa:bb:cc:dd:ee:ff", Amount: 10},                 // missing status
		{CustomerRef: "garbage", Status: model.PaymentStatusCompleted}, // bad mac
	}
	for i, ev := range cases {
		if _, err := f.uc.Reconcile(context.Background(), ev); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("case %d: err = %v, want ErrInvalidArgument", i, err)
		}
	}
}

func TestReconcileUnknownCheckoutStillApplies(t *testing.T) {
	// The gateway can reference a checkout id this service never issued.
	// Billing still applies; the transaction upsert is a silent no-op.
	f := newReconcileFixture(testCustomer())

	res, err := f.uc.Reconcile(context.Background(), completedEvent())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != model.ReconcileApplied {
		t.Fatalf("action = %s", res.Action)
	}
	if f.txns.Get("ws_CO_123") != nil {
		t.Error("no-op upsert created a transaction row")
	}
}
