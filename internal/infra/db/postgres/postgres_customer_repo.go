package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/repository"
)

var _ repository.CustomerRepository = (*customerRepo)(nil)

type customerRepo struct{ pool *pgxpool.Pool }

func NewCustomerRepo(pool *pgxpool.Pool) *customerRepo {
	return &customerRepo{pool: pool}
}

const customerColumns = `id, name, phone, mac_address, plan_id, router_id, user_id, status, expiry, pending_update, created_at`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	c := &model.Customer{}
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.MAC, &c.PlanID, &c.RouterID, &c.UserID, &c.Status, &c.Expiry, &c.PendingUpdate, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *customerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCustomer(row)
}

func (r *customerRepo) FindByMAC(ctx context.Context, tx repository.Tx, mac model.MAC) (*model.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE mac_address=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, string(mac))
	if err != nil {
		return nil, err
	}
	return scanCustomer(row)
}

func (r *customerRepo) Update(ctx context.Context, tx repository.Tx, c *model.Customer) error {
	const q = `
UPDATE customers SET
  name=$2, phone=$3, mac_address=$4, plan_id=$5, router_id=$6, user_id=$7,
  status=$8, expiry=$9, pending_update=$10
WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Name, c.Phone, string(c.MAC), c.PlanID, c.RouterID, c.UserID, c.Status, c.Expiry, c.PendingUpdate)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *customerRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.CustomerStatus) error {
	const q = `UPDATE customers SET status=$2 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *customerRepo) ListByRouter(ctx context.Context, tx repository.Tx, routerID string) ([]*model.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE router_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, routerID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func (r *customerRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + customerColumns + ` FROM customers WHERE status='active' AND expiry IS NOT NULL AND expiry < $1 ORDER BY expiry ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, asOf, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func collectCustomers(rows pgx.Rows) ([]*model.Customer, error) {
	var out []*model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
