package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/supplier"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

func TestSupplierRepository_LoadKeysAndCreate(t *testing.T) {
	mock, ctx, tenant := newMockCtx(t)
	existing, created := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, nombre, cif, email FROM crm_suppliers").
		WithArgs(pgUUIDFromUUID(tenant)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "nombre", "cif", "email"}).
			AddRow(existing, "Initech", strPtr("A999"), (*string)(nil)))
	mock.ExpectCommit()

	repo := NewSupplierRepository()
	keys, err := repo.LoadKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []reconcile.ExistingKeys{
		{ID: existing, Keys: map[reconcile.Field]string{supplier.FieldNombre: "Initech", supplier.FieldCIF: "A999"}},
	}, keys)

	recs, _ := supplier.Schema().Normalize([]reconcile.RawRecord{{"name": "Umbrella", "website": "umbrella.test"}})
	s := supplier.FromRecord(tenant, recs[0])

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO crm_suppliers").
		WithArgs(pgUUIDFromUUID(tenant), "Umbrella", (*string)(nil), (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
			strPtr("umbrella.test"), (*string)(nil), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(created))
	mock.ExpectCommit()

	id, err := repo.Create(ctx, s)
	require.NoError(t, err)
	require.Equal(t, created, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplierRepository_UpdateNotFound(t *testing.T) {
	mock, ctx, tenant := newMockCtx(t)
	recs, _ := supplier.Schema().Normalize([]reconcile.RawRecord{{"nombre": "Umbrella"}})

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE crm_suppliers SET").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := NewSupplierRepository().Update(ctx, uuid.New(), supplier.FromRecord(tenant, recs[0]))
	require.ErrorIs(t, err, supplier.ErrNotFound)
}
