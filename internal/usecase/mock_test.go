//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/adapter"
	"isp-hotspot-billing/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

type MockCustomerRepo struct {
	mu   sync.Mutex
	data map[string]*model.Customer // by id

	FindByMACFunc func(ctx context.Context, tx repository.Tx, mac model.MAC) (*model.Customer, error)
	UpdateFunc    func(ctx context.Context, tx repository.Tx, c *model.Customer) error
	SetStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.CustomerStatus) error
}

var _ repository.CustomerRepository = (*MockCustomerRepo)(nil)

func NewMockCustomerRepo(customers ...*model.Customer) *MockCustomerRepo {
	r := &MockCustomerRepo{data: map[string]*model.Customer{}}
	for _, c := range customers {
		cp := *c
		r.data[c.ID] = &cp
	}
	return r
}

func (r *MockCustomerRepo) Get(id string) *model.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.data[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (r *MockCustomerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.data[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCustomerRepo) FindByMAC(ctx context.Context, tx repository.Tx, mac model.MAC) (*model.Customer, error) {
	if r.FindByMACFunc != nil {
		return r.FindByMACFunc(ctx, tx, mac)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data {
		if c.MAC == mac {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockCustomerRepo) Update(ctx context.Context, tx repository.Tx, c *model.Customer) error {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, tx, c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockCustomerRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.CustomerStatus) error {
	if r.SetStatusFunc != nil {
		return r.SetStatusFunc(ctx, tx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *MockCustomerRepo) ListByRouter(ctx context.Context, tx repository.Tx, routerID string) ([]*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Customer
	for _, c := range r.data {
		if c.RouterID != nil && *c.RouterID == routerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCustomerRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Customer
	for _, c := range r.data {
		if c.Status == model.CustomerStatusActive && c.Expiry != nil && c.Expiry.Before(asOf) {
			cp := *c
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.Plan
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	r := &MockPlanRepo{plans: map[string]*model.Plan{}}
	for _, p := range plans {
		cp := *p
		r.plans[p.ID] = &cp
	}
	return r
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type MockRouterRepo struct {
	mu      sync.Mutex
	routers map[string]*model.Router
}

var _ repository.RouterRepository = (*MockRouterRepo)(nil)

func NewMockRouterRepo(routers ...*model.Router) *MockRouterRepo {
	r := &MockRouterRepo{routers: map[string]*model.Router{}}
	for _, rt := range routers {
		cp := *rt
		r.routers[rt.ID] = &cp
	}
	return r
}

func (r *MockRouterRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Router, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.routers[id]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRouterRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Router, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Router
	for _, rt := range r.routers {
		cp := *rt
		out = append(out, &cp)
	}
	return out, nil
}

type MockPaymentRecordRepo struct {
	mu       sync.Mutex
	Saved    []*model.PaymentRecord
	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error
}

var _ repository.PaymentRecordRepository = (*MockPaymentRecordRepo)(nil)

func (r *MockPaymentRecordRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.Saved = append(r.Saved, &cp)
	return nil
}

type MockTransactionRecordRepo struct {
	mu   sync.Mutex
	data map[string]*model.TransactionRecord // by checkout request id

	MarkStatusFunc func(ctx context.Context, tx repository.Tx, checkoutRequestID string, status model.TransactionStatus, receipt *string, resultCode int, resultDesc string) (bool, error)
}

var _ repository.TransactionRecordRepository = (*MockTransactionRecordRepo)(nil)

func NewMockTransactionRecordRepo(records ...*model.TransactionRecord) *MockTransactionRecordRepo {
	r := &MockTransactionRecordRepo{data: map[string]*model.TransactionRecord{}}
	for _, rec := range records {
		cp := *rec
		r.data[rec.CheckoutRequestID] = &cp
	}
	return r
}

func (r *MockTransactionRecordRepo) Get(checkoutID string) *model.TransactionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.data[checkoutID]; ok {
		cp := *rec
		return &cp
	}
	return nil
}

func (r *MockTransactionRecordRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, checkoutRequestID string) (*model.TransactionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.data[checkoutRequestID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRecordRepo) MarkStatus(ctx context.Context, tx repository.Tx, checkoutRequestID string, status model.TransactionStatus, receipt *string, resultCode int, resultDesc string) (bool, error) {
	if r.MarkStatusFunc != nil {
		return r.MarkStatusFunc(ctx, tx, checkoutRequestID, status, receipt, resultCode, resultDesc)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[checkoutRequestID]
	if !ok {
		return false, nil
	}
	rec.Status = status
	rec.ReceiptNumber = receipt
	rec.ResultCode = &resultCode
	rec.ResultDesc = &resultDesc
	rec.UpdatedAt = time.Now()
	return true, nil
}

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately without a real transaction. Assign
// WithTxFunc for tests that need to observe or fail the transactional path.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Locker
// =============================

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockBusy
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// =============================
// Fake router
// =============================

// fakeRouter is an in-memory RouterOS stand-in implementing the five
// namespaces the use cases touch. FailOn maps a command to a trap message
// so per-step failures can be scripted.
type fakeRouter struct {
	mu     sync.Mutex
	tables map[string][]map[string]string // namespace -> rows
	nextID int

	FailOn map[string]string // full command -> trap message
	Calls  []string
}

var _ adapter.RouterSession = (*fakeRouter)(nil)

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		tables: map[string][]map[string]string{},
		FailOn: map[string]string{},
	}
}

func (f *fakeRouter) rowsOf(ns string) []map[string]string { return f.tables[ns] }

func (f *fakeRouter) seed(ns string, row map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row[".id"] = "*" + strconv.Itoa(f.nextID)
	f.tables[ns] = append(f.tables[ns], row)
}

func (f *fakeRouter) Run(ctx context.Context, command string, args map[string]string) ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, command)

	if msg, ok := f.FailOn[command]; ok {
		return nil, &adapter.TrapError{Command: command, Message: msg}
	}

	i := strings.LastIndex(command, "/")
	ns, verb := command[:i], command[i+1:]

	switch verb {
	case "print":
		out := make([]map[string]string, 0, len(f.tables[ns]))
		for _, row := range f.tables[ns] {
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out = append(out, cp)
		}
		return out, nil
	case "add":
		key, val := addIdentity(ns, args)
		for _, row := range f.tables[ns] {
			if key != "" && strings.EqualFold(row[key], val) {
				return nil, &adapter.TrapError{Command: command, Message: "failure: already have " + key + " with this value"}
			}
		}
		f.nextID++
		row := map[string]string{".id": "*" + strconv.Itoa(f.nextID)}
		for k, v := range args {
			row[k] = v
		}
		f.tables[ns] = append(f.tables[ns], row)
		return nil, nil
	case "set":
		for _, row := range f.tables[ns] {
			if row[".id"] == args["numbers"] || strings.EqualFold(row["name"], args["numbers"]) {
				for k, v := range args {
					if k != "numbers" {
						row[k] = v
					}
				}
				return nil, nil
			}
		}
		return nil, &adapter.TrapError{Command: command, Message: "no such item"}
	case "remove":
		rows := f.tables[ns]
		for idx, row := range rows {
			if row[".id"] == args["numbers"] {
				f.tables[ns] = append(rows[:idx:idx], rows[idx+1:]...)
				return nil, nil
			}
		}
		return nil, &adapter.TrapError{Command: command, Message: "no such item"}
	default:
		return nil, fmt.Errorf("fakeRouter: unsupported command %s", command)
	}
}

// addIdentity names the column that must stay unique per namespace.
func addIdentity(ns string, args map[string]string) (string, string) {
	switch ns {
	case "/ip/hotspot/user", "/queue/simple":
		return "name", args["name"]
	case "/ip/hotspot/ip-binding", "/ip/dhcp-server/lease":
		return "mac-address", args["mac-address"]
	}
	return "", ""
}

func (f *fakeRouter) Close() error { return nil }

type fakeDialer struct {
	sess    *fakeRouter
	dialErr error
	dials   int
}

var _ adapter.RouterDialer = (*fakeDialer)(nil)

func (d *fakeDialer) Dial(ctx context.Context, r *model.Router) (adapter.RouterSession, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.sess, nil
}

// =============================
// Helpers
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
