package composables

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/iota-crm/pkg/constants"
)

// WithRLSEnforced marks ctx so that transactions opened through InTx set app.current_tenant.
func WithRLSEnforced(ctx context.Context, enforce bool) context.Context {
	return context.WithValue(ctx, constants.RLSKey, enforce)
}

func rlsEnforced(ctx context.Context) bool {
	v, _ := ctx.Value(constants.RLSKey).(bool)
	return v
}

func ApplyTenantRLS(ctx context.Context, tx pgx.Tx) error {
	if !rlsEnforced(ctx) {
		return nil
	}
	tenantID, err := UseTenantID(ctx)
	if err != nil {
		return fmt.Errorf("rls requires tenant in context: %w", err)
	}
	_, err = tx.Exec(ctx, "SELECT set_config('app.current_tenant', $1, true)", tenantID.String())
	if err != nil {
		return fmt.Errorf("failed to set rls tenant context: %w", err)
	}
	return nil
}
