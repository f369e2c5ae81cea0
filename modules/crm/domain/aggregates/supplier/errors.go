package supplier

import "github.com/iota-uz/iota-crm/pkg/serrors"

var (
	ErrNotFound  = serrors.NewError("CRM_SUPPLIER_NOT_FOUND", "supplier not found", "Suppliers.Errors.NotFound")
	ErrDuplicate = serrors.NewError("CRM_SUPPLIER_DUPLICATE", "supplier already exists", "Suppliers.Errors.Duplicate")
)
