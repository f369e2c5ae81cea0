package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type entityRepository[T any] interface {
	LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error)
	Create(ctx context.Context, entity T) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, entity T) error
}

// entityStore adapts a domain repository to the engine for one tenant.
type entityStore[T any] struct {
	repo     entityRepository[T]
	tenantID uuid.UUID
	build    func(tenantID uuid.UUID, rec reconcile.NormalizedRecord) T
}

func (s *entityStore[T]) LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error) {
	return s.repo.LoadKeys(ctx)
}

func (s *entityStore[T]) Create(ctx context.Context, rec reconcile.NormalizedRecord) (uuid.UUID, error) {
	return s.repo.Create(ctx, s.build(s.tenantID, rec))
}

func (s *entityStore[T]) Update(ctx context.Context, id uuid.UUID, rec reconcile.NormalizedRecord) error {
	return s.repo.Update(ctx, id, s.build(s.tenantID, rec))
}
