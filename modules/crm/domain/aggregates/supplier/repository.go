package supplier

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type Repository interface {
	LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error)
	GetByID(ctx context.Context, id uuid.UUID) (Supplier, error)
	Create(ctx context.Context, s Supplier) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, s Supplier) error
}

