package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

const (
	FieldNombre       reconcile.Field = "nombre"
	FieldNIF          reconcile.Field = "nif"
	FieldEmail        reconcile.Field = "email"
	FieldTelefono     reconcile.Field = "telefono"
	FieldDireccion    reconcile.Field = "direccion"
	FieldCiudad       reconcile.Field = "ciudad"
	FieldCodigoPostal reconcile.Field = "codigo_postal"
	FieldProvincia    reconcile.Field = "provincia"
	FieldPais         reconcile.Field = "pais"
	FieldContacto     reconcile.Field = "contacto"
	FieldNotas        reconcile.Field = "notas"
)

const Entity = "clients"

// Schema is the import shape of a client. Candidate keys are probed as name, tax id, email.
func Schema() reconcile.Schema {
	return reconcile.Schema{
		Entity: Entity,
		Label:  FieldNombre,
		Fields: []reconcile.Field{
			FieldNombre, FieldNIF, FieldEmail, FieldTelefono, FieldDireccion, FieldCiudad,
			FieldCodigoPostal, FieldProvincia, FieldPais, FieldContacto, FieldNotas,
		},
		Keys: []reconcile.Field{FieldNombre, FieldNIF, FieldEmail},
		Aliases: map[reconcile.Field][]string{
			FieldNombre:       {"name", "razon_social"},
			FieldNIF:          {"cif", "tax_id", "vat"},
			FieldTelefono:     {"phone", "tel"},
			FieldDireccion:    {"address"},
			FieldCiudad:       {"city"},
			FieldCodigoPostal: {"cp", "postal_code", "zip"},
			FieldProvincia:    {"province", "state"},
			FieldPais:         {"country"},
			FieldContacto:     {"contact"},
			FieldNotas:        {"notes"},
		},
	}
}

type Client struct {
	tenantID     uuid.UUID
	id           uuid.UUID
	nombre       string
	nif          *string
	email        *string
	telefono     *string
	direccion    *string
	ciudad       *string
	codigoPostal *string
	provincia    *string
	pais         *string
	contacto     *string
	notas        *string
	createdAt    time.Time
	updatedAt    time.Time
}

// FromRecord builds a client from a normalized import record. Fields absent from the record stay nil.
func FromRecord(tenantID uuid.UUID, rec reconcile.NormalizedRecord) Client {
	opt := func(f reconcile.Field) *string {
		if v, ok := rec.Get(f); ok {
			return &v
		}
		return nil
	}
	return Client{
		tenantID:     tenantID,
		nombre:       rec.Label(),
		nif:          opt(FieldNIF),
		email:        opt(FieldEmail),
		telefono:     opt(FieldTelefono),
		direccion:    opt(FieldDireccion),
		ciudad:       opt(FieldCiudad),
		codigoPostal: opt(FieldCodigoPostal),
		provincia:    opt(FieldProvincia),
		pais:         opt(FieldPais),
		contacto:     opt(FieldContacto),
		notas:        opt(FieldNotas),
	}
}

func Hydrate(
	tenantID uuid.UUID,
	id uuid.UUID,
	nombre string,
	nif, email, telefono, direccion, ciudad, codigoPostal, provincia, pais, contacto, notas *string,
	createdAt, updatedAt time.Time,
) Client {
	return Client{
		tenantID:     tenantID,
		id:           id,
		nombre:       nombre,
		nif:          nif,
		email:        email,
		telefono:     telefono,
		direccion:    direccion,
		ciudad:       ciudad,
		codigoPostal: codigoPostal,
		provincia:    provincia,
		pais:         pais,
		contacto:     contacto,
		notas:        notas,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (c Client) TenantID() uuid.UUID    { return c.tenantID }
func (c Client) ID() uuid.UUID          { return c.id }
func (c Client) Nombre() string         { return c.nombre }
func (c Client) NIF() *string           { return c.nif }
func (c Client) Email() *string         { return c.email }
func (c Client) Telefono() *string      { return c.telefono }
func (c Client) Direccion() *string     { return c.direccion }
func (c Client) Ciudad() *string        { return c.ciudad }
func (c Client) CodigoPostal() *string  { return c.codigoPostal }
func (c Client) Provincia() *string     { return c.provincia }
func (c Client) Pais() *string          { return c.pais }
func (c Client) Contacto() *string      { return c.contacto }
func (c Client) Notas() *string         { return c.notas }
func (c Client) CreatedAt() time.Time   { return c.createdAt }
func (c Client) UpdatedAt() time.Time   { return c.updatedAt }
