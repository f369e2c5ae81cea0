package reconcile

import (
	"fmt"

	"github.com/iota-uz/iota-crm/pkg/serrors"
)

var (
	ErrInvalidPayload        = serrors.NewError("IMPORT_INVALID_PAYLOAD", "invalid import payload", "Import.Errors.InvalidPayload")
	ErrDuplicateLookupFailed = serrors.NewError("IMPORT_DUPLICATE_LOOKUP_FAILED", "failed to load existing records", "Import.Errors.DuplicateLookupFailed")
	ErrInvalidSchema         = serrors.NewError("IMPORT_INVALID_SCHEMA", "invalid import schema", "")
)

func invalidPayload(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, reason)
}
