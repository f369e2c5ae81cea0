package modules

import (
	"github.com/iota-uz/iota-crm/modules/crm"
	"github.com/iota-uz/iota-crm/pkg/application"
)

// BuiltInModules returns the modules every entrypoint loads.
func BuiltInModules(crmOptions *crm.ModuleOptions) []application.Module {
	return []application.Module{
		crm.NewModule(crmOptions),
	}
}

func Load(app application.Application, modules ...application.Module) error {
	for _, module := range modules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
