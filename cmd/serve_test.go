package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/dnsmcp/internal/config"
)

func TestRunServeRejectsUnknownFlag(t *testing.T) {
	err := RunServe([]string{"-no-such-flag"})
	require.Error(t, err)
}

func TestRunServeFailsFastWithoutConfig(t *testing.T) {
	t.Setenv("TECHNITIUM_URL", "")
	t.Setenv("TECHNITIUM_TOKEN", "")
	t.Setenv("TECHNITIUM_TOKEN_FILE", "")
	t.Setenv("TECHNITIUM_PASSWORD", "")

	err := RunServe(nil)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunServeFailsOnMissingTokenFile(t *testing.T) {
	t.Setenv("TECHNITIUM_URL", "https://dns.example.net:53443")
	t.Setenv("TECHNITIUM_TOKEN", "")
	t.Setenv("TECHNITIUM_PASSWORD", "")
	t.Setenv("TECHNITIUM_TOKEN_FILE", t.TempDir()+"/missing-token")

	err := RunServe(nil)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "TECHNITIUM_TOKEN_FILE", cfgErr.Field)
}
