package client

import "github.com/iota-uz/iota-crm/pkg/serrors"

var (
	ErrNotFound  = serrors.NewError("CRM_CLIENT_NOT_FOUND", "client not found", "Clients.Errors.NotFound")
	ErrDuplicate = serrors.NewError("CRM_CLIENT_DUPLICATE", "client already exists", "Clients.Errors.Duplicate")
)
