package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/iota-crm/modules"
	"github.com/iota-uz/iota-crm/modules/crm"
	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/eventbus"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	conf := configuration.Use()
	logger := conf.Logger()

	pool, err := connectDB(ctx, conf)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(&crm.ModuleOptions{})...); err != nil {
		return err
	}
	if err := app.Migrations().Run(ctx); err != nil {
		return withCode(exitDB, err)
	}
	return nil
}
