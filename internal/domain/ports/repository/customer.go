package repository

import (
	"context"
	"time"

	"isp-hotspot-billing/internal/domain/model"
)

type CustomerRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Customer, error)
	// FindByMAC resolves a customer by canonical MAC. Inside a transaction
	// the row is locked FOR UPDATE.
	FindByMAC(ctx context.Context, tx Tx, mac model.MAC) (*model.Customer, error)
	Update(ctx context.Context, tx Tx, c *model.Customer) error
	SetStatus(ctx context.Context, tx Tx, id string, status model.CustomerStatus) error
	ListByRouter(ctx context.Context, tx Tx, routerID string) ([]*model.Customer, error)
	// ListExpiredActive returns active customers whose expiry passed before asOf.
	ListExpiredActive(ctx context.Context, tx Tx, asOf time.Time, limit int) ([]*model.Customer, error)
}
