package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/client"
	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

const (
	clientKeysQuery = `SELECT id, nombre, nif, email FROM crm_clients WHERE tenant_id = $1`

	clientSelectQuery = `SELECT id, tenant_id, nombre, nif, email, telefono, direccion, ciudad,
       codigo_postal, provincia, pais, contacto, notas, created_at, updated_at
FROM crm_clients WHERE tenant_id = $1 AND id = $2`

	clientInsertQuery = `INSERT INTO crm_clients (
    tenant_id, nombre, nif, email, telefono, direccion, ciudad,
    codigo_postal, provincia, pais, contacto, notas
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`

	clientUpdateQuery = `UPDATE crm_clients SET
    nombre = $3, nif = $4, email = $5, telefono = $6, direccion = $7, ciudad = $8,
    codigo_postal = $9, provincia = $10, pais = $11, contacto = $12, notas = $13,
    updated_at = now()
WHERE tenant_id = $1 AND id = $2`
)

type ClientRepository struct{}

func NewClientRepository() client.Repository {
	return &ClientRepository{}
}

func (r *ClientRepository) LoadKeys(ctx context.Context) ([]reconcile.ExistingKeys, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]reconcile.ExistingKeys, error) {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return nil, err
		}
		rows, err := tx.Query(txCtx, clientKeysQuery, pgTenantID)
		if err != nil {
			return nil, gerrors.Wrap(err, "query client keys")
		}
		defer rows.Close()

		var out []reconcile.ExistingKeys
		for rows.Next() {
			var (
				id     uuid.UUID
				nombre string
				nif    *string
				email  *string
			)
			if err := rows.Scan(&id, &nombre, &nif, &email); err != nil {
				return nil, gerrors.Wrap(err, "scan client keys")
			}
			out = append(out, existingKeys(id, map[reconcile.Field]*string{
				client.FieldNombre: &nombre,
				client.FieldNIF:    nif,
				client.FieldEmail:  email,
			}))
		}
		if err := rows.Err(); err != nil {
			return nil, gerrors.Wrap(err, "iterate client keys")
		}
		return out, nil
	})
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (client.Client, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return client.Client{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return client.Client{}, err
	}

	var (
		rowID, tenantID      uuid.UUID
		nombre               string
		createdAt, updatedAt time.Time
	)
	var nif, email, telefono, direccion, ciudad, codigoPostal, provincia, pais, contacto, notas *string
	err = tx.QueryRow(ctx, clientSelectQuery, pgTenantID, pgUUIDFromUUID(id)).Scan(
		&rowID, &tenantID, &nombre, &nif, &email, &telefono, &direccion, &ciudad,
		&codigoPostal, &provincia, &pais, &contacto, &notas, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return client.Client{}, client.ErrNotFound
		}
		return client.Client{}, gerrors.Wrap(err, "get client")
	}
	return client.Hydrate(
		tenantID, rowID, nombre,
		nif, email, telefono, direccion, ciudad, codigoPostal, provincia, pais, contacto, notas,
		createdAt, updatedAt,
	), nil
}

// Create inserts c in its own transaction and returns the generated id.
func (r *ClientRepository) Create(ctx context.Context, c client.Client) (uuid.UUID, error) {
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
		err = tx.QueryRow(txCtx, clientInsertQuery,
			pgTenantID, c.Nombre(), c.NIF(), c.Email(), c.Telefono(), c.Direccion(), c.Ciudad(),
			c.CodigoPostal(), c.Provincia(), c.Pais(), c.Contacto(), c.Notas(),
		).Scan(&id)
		if err != nil {
			return uuid.Nil, gerrors.Wrap(mapUniqueViolation(err, client.ErrDuplicate), "create client")
		}
		return id, nil
	})
}

// Update overwrites every column; fields absent from c become NULL.
func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, c client.Client) error {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(txCtx, clientUpdateQuery,
			pgTenantID, pgUUIDFromUUID(id),
			c.Nombre(), c.NIF(), c.Email(), c.Telefono(), c.Direccion(), c.Ciudad(),
			c.CodigoPostal(), c.Provincia(), c.Pais(), c.Contacto(), c.Notas(),
		)
		if err != nil {
			return gerrors.Wrap(mapUniqueViolation(err, client.ErrDuplicate), "update client")
		}
		if tag.RowsAffected() == 0 {
			return client.ErrNotFound
		}
		return nil
	})
}

func existingKeys(id uuid.UUID, values map[reconcile.Field]*string) reconcile.ExistingKeys {
	keys := make(map[reconcile.Field]string, len(values))
	for f, v := range values {
		if v != nil && *v != "" {
			keys[f] = *v
		}
	}
	return reconcile.ExistingKeys{ID: id, Keys: keys}
}
