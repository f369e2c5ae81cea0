package crm

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/modules/crm/services"
	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/eventbus"
	"github.com/iota-uz/iota-crm/pkg/logging"
)

func TestModule_Register(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bus := eventbus.NewEventPublisher(logging.Discard())
	app := application.New(&application.ApplicationOptions{EventBus: bus, Logger: logging.Discard()})

	module := NewModule(&ModuleOptions{Redis: rdb, ReportTTL: time.Hour, MaxUploadSize: 1 << 20})
	require.NoError(t, module.Register(app))
	require.Equal(t, "crm", module.Name())

	keys := make([]string, 0)
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/crm/api/clients", "/crm/api/suppliers"}, keys)

	clients := app.Service(services.ClientImportService{}).(*services.ClientImportService)
	suppliers := app.Service(services.SupplierImportService{}).(*services.SupplierImportService)
	require.Equal(t, "clients", clients.Entity())
	require.Equal(t, "suppliers", suppliers.Entity())
	require.Equal(t, 1, bus.SubscribersCount())
}

func TestMigrationFiles_Embedded(t *testing.T) {
	entries, err := MigrationFiles.ReadDir("infrastructure/persistence/schema")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}
