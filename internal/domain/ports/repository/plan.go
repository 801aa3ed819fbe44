package repository

import (
	"context"

	"isp-hotspot-billing/internal/domain/model"
)

type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
}

type RouterRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Router, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Router, error)
}
