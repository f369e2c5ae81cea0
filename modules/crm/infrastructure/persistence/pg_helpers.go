package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/iota-crm/pkg/composables"
)

const pgUniqueViolation = "23505"

func pgUUIDFromUUID(id [16]byte) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}
}

func tenantIDs(ctx context.Context) (uuid.UUID, pgtype.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, pgtype.UUID{}, fmt.Errorf("failed to get tenant from context: %w", err)
	}
	return tenantID, pgUUIDFromUUID(tenantID), nil
}

// mapUniqueViolation keeps the pg error in the chain so callers can still read its SQLSTATE.
func mapUniqueViolation(err error, domainErr error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", domainErr, err)
	}
	return err
}
