package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"collectvault/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "cvt-local", cfg.NetworkName)
	require.NotEmpty(t, cfg.AdminAddress)
	require.NoError(t, cfg.Validate())

	admin, err := cfg.Admin()
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, admin)
}

func TestLoadExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	seed, err := Load(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, seed.AdminAddress, reloaded.AdminAddress)
	require.Equal(t, seed.RecordDeposit, reloaded.RecordDeposit)
}

func TestLoadRejectsBadAdmin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "RPCAddress = \":8080\"\nDataDir = \"./cvt-data\"\nAdminAddress = \"not-an-address\"\nRecordDeposit = 1000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AdminAddress")
}

func TestValidate(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	base := Config{
		RPCAddress:    ":8080",
		DataDir:       "./cvt-data",
		AdminAddress:  key.PubKey().Address().String(),
		RecordDeposit: 1,
	}

	t.Run("empty data dir", func(t *testing.T) {
		cfg := base
		cfg.DataDir = "  "
		require.Error(t, cfg.Validate())
	})

	t.Run("zero deposit", func(t *testing.T) {
		cfg := base
		cfg.RecordDeposit = 0
		require.Error(t, cfg.Validate())
	})
}
