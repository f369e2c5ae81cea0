package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/supplier"
	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

const (
	supplierKeysQuery = `SELECT id, nombre, cif, email FROM crm_suppliers WHERE tenant_id = $1`

	supplierSelectQuery = `SELECT id, tenant_id, nombre, cif, email, telefono, direccion, ciudad,
       codigo_postal, pais, web, iban, notas, created_at, updated_at
FROM crm_suppliers WHERE tenant_id = $1 AND id = $2`

	supplierInsertQuery = `INSERT INTO crm_suppliers (
    tenant_id, nombre, cif, email, telefono, direccion, ciudad,
    codigo_postal, pais, web, iban, notas
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`

	supplierUpdateQuery = `UPDATE crm_suppliers SET
    nombre = $3, cif = $4, email = $5, telefono = $6, direccion = $7, ciudad = $8,
    codigo_postal = $9, pais = $10, web = $11, iban = $12, notas = $13,
    updated_at = now()
WHERE tenant_id = $1 AND id = $2`
)

type SupplierRepository struct{}

func NewSupplierRepository() supplier.Repository {
	return &SupplierRepository{}
}

func (r *SupplierRepository) LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]reconcile.ExistingKeys, error) {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return nil, err
		}
		rows, err := tx.Query(txCtx, supplierKeysQuery, pgTenantID)
		if err != nil {
			return nil, gerrors.Wrap(err, "query supplier keys")
		}
		defer rows.Close()

		var out []reconcile.ExistingKeys
		for rows.Next() {
			var (
				id     uuid.UUID
				nombre string
				cif    *string
				email  *string
			)
			if err := rows.Scan(&id, &nombre, &cif, &email); err != nil {
				return nil, gerrors.Wrap(err, "scan supplier keys")
			}
			out = append(out, existingKeys(id, map[reconcile.Field]*string{
				supplier.FieldNombre: &nombre,
				supplier.FieldCIF:    cif,
				supplier.FieldEmail:  email,
			}))
		}
		if err := rows.Err(); err != nil {
			return nil, gerrors.Wrap(err, "iterate supplier keys")
		}
		return out, nil
	})
}

func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (supplier.Supplier, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return supplier.Supplier{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return supplier.Supplier{}, err
	}

	var (
		rowID, tenantID      uuid.UUID
		nombre               string
		createdAt, updatedAt time.Time
	)
	var cif, email, telefono, direccion, ciudad, codigoPostal, pais, web, iban, notas *string
	err = tx.QueryRow(ctx, supplierSelectQuery, pgTenantID, pgUUIDFromUUID(id)).Scan(
		&rowID, &tenantID, &nombre, &cif, &email, &telefono, &direccion, &ciudad,
		&codigoPostal, &pais, &web, &iban, &notas, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return supplier.Supplier{}, supplier.ErrNotFound
		}
		return supplier.Supplier{}, gerrors.Wrap(err, "get supplier")
	}
	return supplier.Hydrate(
		tenantID, rowID, nombre,
		cif, email, telefono, direccion, ciudad, codigoPostal, pais, web, iban, notas,
		createdAt, updatedAt,
	), nil
}

func (r *SupplierRepository) Create(ctx context.Context, s supplier.Supplier) (uuid.UUID, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (uuid.UUID, error) {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return uuid.Nil, err
		}
		var id uuid.UUID
		err = tx.QueryRow(txCtx, supplierInsertQuery,
			pgTenantID, s.Nombre(), s.CIF(), s.Email(), s.Telefono(), s.Direccion(), s.Ciudad(),
			s.CodigoPostal(), s.Pais(), s.Web(), s.IBAN(), s.Notas(),
		).Scan(&id)
		if err != nil {
			return uuid.Nil, gerrors.Wrap(mapUniqueViolation(err, supplier.ErrDuplicate), "create supplier")
		}
		return id, nil
	})
}

func (r *SupplierRepository) Update(ctx context.Context, id uuid.UUID, s supplier.Supplier) error {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(txCtx, supplierUpdateQuery,
			pgTenantID, pgUUIDFromUUID(id),
			s.Nombre(), s.CIF(), s.Email(), s.Telefono(), s.Direccion(), s.Ciudad(),
			s.CodigoPostal(), s.Pais(), s.Web(), s.IBAN(), s.Notas(),
		)
		if err != nil {
			return gerrors.Wrap(mapUniqueViolation(err, supplier.ErrDuplicate), "update supplier")
		}
		if tag.RowsAffected() == 0 {
			return supplier.ErrNotFound
		}
		return nil
	})
}
