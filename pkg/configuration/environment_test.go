package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "IOTA_CRM_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "reconcile")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("IOTA_CRM_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("IOTA_CRM_TEST_ENV_LOAD"))
}

func TestParse_ImportDefaults(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, c.parse())

	require.Equal(t, 5, c.Import.ChunkSize)
	require.Equal(t, 200*time.Millisecond, c.Import.ChunkDelay)
	require.Equal(t, 1, c.Import.Workers)
	require.Equal(t, PacerFixed, c.Import.Pacer)
	require.Equal(t, "disabled", c.RLSEnforce)
}

func TestParse_RejectsInvalidImportOptions(t *testing.T) {
	t.Setenv("IMPORT_CHUNK_SIZE", "0")
	c := &Configuration{}
	err := c.parse()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ChunkSize")
}

func TestParse_RejectsUnknownPacer(t *testing.T) {
	t.Setenv("IMPORT_PACER", "bucket")
	c := &Configuration{}
	require.Error(t, c.parse())
}

func TestParse_APITokens(t *testing.T) {
	tenant := uuid.New()
	t.Setenv("API_TOKENS", "secret:"+tenant.String()+", ")
	c := &Configuration{}
	require.NoError(t, c.parse())
	require.Equal(t, map[string]uuid.UUID{"secret": tenant}, c.Auth.Tokens())
}

func TestParse_APITokensRejectsBadTenant(t *testing.T) {
	t.Setenv("API_TOKENS", "secret:not-a-uuid")
	c := &Configuration{}
	require.Error(t, c.parse())
}

func TestParse_RLSEnforceRequiresNonSuperuser(t *testing.T) {
	t.Setenv("RLS_ENFORCE", "enforce")
	c := &Configuration{}
	require.Error(t, c.parse())

	t.Setenv("DB_USER", "crm_app")
	c = &Configuration{}
	require.NoError(t, c.parse())
	require.True(t, c.RLSEnforced())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
