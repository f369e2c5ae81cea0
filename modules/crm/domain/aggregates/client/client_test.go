package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

func TestSchemaIsValid(t *testing.T) {
	require.NoError(t, Schema().Validate())
}

func TestFromRecord_MapsAliasesAndLeavesAbsentNil(t *testing.T) {
	recs, invalid := Schema().Normalize([]reconcile.RawRecord{
		{"name": " Acme ", "cif": "B123", "phone": "", "email": "x@acme.test"},
	})
	require.Zero(t, invalid)
	require.Len(t, recs, 1)

	tenant := uuid.New()
	c := FromRecord(tenant, recs[0])

	require.Equal(t, tenant, c.TenantID())
	require.Equal(t, "Acme", c.Nombre())
	require.Equal(t, "B123", *c.NIF())
	require.Equal(t, "x@acme.test", *c.Email())
	require.Nil(t, c.Telefono())
	require.Nil(t, c.Notas())
	require.Equal(t, uuid.Nil, c.ID())
}
