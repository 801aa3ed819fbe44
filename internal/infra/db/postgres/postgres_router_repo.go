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

var _ repository.RouterRepository = (*routerRepo)(nil)

type routerRepo struct{ pool *pgxpool.Pool }

func NewRouterRepo(pool *pgxpool.Pool) *routerRepo {
	return &routerRepo{pool: pool}
}

const routerColumns = `id, user_id, name, ip_address, username, password, port, created_at`

func scanRouter(row pgx.Row) (*model.Router, error) {
	rt := &model.Router{}
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.Name, &rt.IPAddress, &rt.Username, &rt.Password, &rt.Port, &rt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rt, nil
}

func (r *routerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Router, error) {
	const q = `SELECT ` + routerColumns + ` FROM routers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRouter(row)
}

func (r *routerRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Router, error) {
	const q = `SELECT ` + routerColumns + ` FROM routers ORDER BY name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Router
	for rows.Next() {
		rt, err := scanRouter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}
