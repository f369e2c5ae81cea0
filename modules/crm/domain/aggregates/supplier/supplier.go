package supplier

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

const (
	FieldNombre       reconcile.Field = "nombre"
	FieldCIF          reconcile.Field = "cif"
	FieldEmail        reconcile.Field = "email"
	FieldTelefono     reconcile.Field = "telefono"
	FieldDireccion    reconcile.Field = "direccion"
	FieldCiudad       reconcile.Field = "ciudad"
	FieldCodigoPostal reconcile.Field = "codigo_postal"
	FieldPais         reconcile.Field = "pais"
	FieldWeb          reconcile.Field = "web"
	FieldIBAN         reconcile.Field = "iban"
	FieldNotas        reconcile.Field = "notas"
)

const Entity = "suppliers"

func Schema() reconcile.Schema {
	return reconcile.Schema{
		Entity: Entity,
		Label:  FieldNombre,
		Fields: []reconcile.Field{
			FieldNombre, FieldCIF, FieldEmail, FieldTelefono, FieldDireccion, FieldCiudad,
			FieldCodigoPostal, FieldPais, FieldWeb, FieldIBAN, FieldNotas,
		},
		Keys: []reconcile.Field{FieldNombre, FieldCIF, FieldEmail},
		Aliases: map[reconcile.Field][]string{
			FieldNombre:       {"name", "razon_social"},
			FieldCIF:          {"nif", "tax_id", "vat"},
			FieldTelefono:     {"phone"},
			FieldDireccion:    {"address"},
			FieldCiudad:       {"city"},
			FieldCodigoPostal: {"cp", "postal_code"},
			FieldPais:         {"country"},
			FieldWeb:          {"website", "url"},
			FieldNotas:        {"notes"},
		},
	}
}

type Supplier struct {
	tenantID     uuid.UUID
	id           uuid.UUID
	nombre       string
	cif          *string
	email        *string
	telefono     *string
	direccion    *string
	ciudad       *string
	codigoPostal *string
	pais         *string
	web          *string
	iban         *string
	notas        *string
	createdAt    time.Time
	updatedAt    time.Time
}

func FromRecord(tenantID uuid.UUID, rec reconcile.NormalizedRecord) Supplier {
	opt := func(f reconcile.Field) *string {
		if v, ok := rec.Get(f); ok {
			return &v
		}
		return nil
	}
	return Supplier{
		tenantID:     tenantID,
		nombre:       rec.Label(),
		cif:          opt(FieldCIF),
		email:        opt(FieldEmail),
		telefono:     opt(FieldTelefono),
		direccion:    opt(FieldDireccion),
		ciudad:       opt(FieldCiudad),
		codigoPostal: opt(FieldCodigoPostal),
		pais:         opt(FieldPais),
		web:          opt(FieldWeb),
		iban:         opt(FieldIBAN),
		notas:        opt(FieldNotas),
	}
}

func Hydrate(
	tenantID uuid.UUID,
	id uuid.UUID,
	nombre string,
	cif, email, telefono, direccion, ciudad, codigoPostal, pais, web, iban, notas *string,
	createdAt, updatedAt time.Time,
) Supplier {
	return Supplier{
		tenantID:     tenantID,
		id:           id,
		nombre:       nombre,
		cif:          cif,
		email:        email,
		telefono:     telefono,
		direccion:    direccion,
		ciudad:       ciudad,
		codigoPostal: codigoPostal,
		pais:         pais,
		web:          web,
		iban:         iban,
		notas:        notas,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (s Supplier) TenantID() uuid.UUID   { return s.tenantID }
func (s Supplier) ID() uuid.UUID         { return s.id }
func (s Supplier) Nombre() string        { return s.nombre }
func (s Supplier) CIF() *string          { return s.cif }
func (s Supplier) Email() *string        { return s.email }
func (s Supplier) Telefono() *string     { return s.telefono }
func (s Supplier) Direccion() *string    { return s.direccion }
func (s Supplier) Ciudad() *string       { return s.ciudad }
func (s Supplier) CodigoPostal() *string { return s.codigoPostal }
func (s Supplier) Pais() *string         { return s.pais }
func (s Supplier) Web() *string          { return s.web }
func (s Supplier) IBAN() *string         { return s.iban }
func (s Supplier) Notas() *string        { return s.notas }
func (s Supplier) CreatedAt() time.Time  { return s.createdAt }
func (s Supplier) UpdatedAt() time.Time  { return s.updatedAt }
