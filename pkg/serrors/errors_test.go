package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	a := NewError("IMPORT_INVALID_PAYLOAD", "invalid payload", "")
	b := NewError("IMPORT_INVALID_PAYLOAD", "data must not be empty", "")
	c := NewError("OTHER", "other", "")

	wrapped := fmt.Errorf("decode: %w", b)
	require.ErrorIs(t, wrapped, a)
	require.NotErrorIs(t, wrapped, c)
	require.Equal(t, "IMPORT_INVALID_PAYLOAD", Code(wrapped))
	require.Equal(t, "", Code(errors.New("plain")))
}
