package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type Repository interface {
	// LoadKeys returns name, nif and email of every client of the tenant in ctx.
	LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error)
	GetByID(ctx context.Context, id uuid.UUID) (Client, error)
	Create(ctx context.Context, c Client) (uuid.UUID, error)
	// Update overwrites every column of the client with c's values, absent ones included.
	Update(ctx context.Context, id uuid.UUID, c Client) error
}
