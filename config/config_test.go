package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SNET_RPC_ENDPOINT", "https://mainnet.infura.io/v3/key")
	t.Setenv("SNET_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0x5e592F9b1d303183d963635f895f0f0C48284f4e", cfg.MPEAddress)
	assert.Equal(t, "https://ipfs.singularitynet.io", cfg.IPFSGateway)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint64(1), cfg.WaitConfirmations)
	assert.Empty(t, cfg.MetricsAddr)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadRequiresEndpoint(t *testing.T) {
	t.Setenv("SNET_RPC_ENDPOINT", "")
	t.Setenv("SNET_PRIVATE_KEY", "ac0974")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresSomeKey(t *testing.T) {
	t.Setenv("SNET_RPC_ENDPOINT", "https://example.com")
	t.Setenv("SNET_PRIVATE_KEY", "")
	t.Setenv("SNET_PRIVATE_KEY_FILE", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadAddress(t *testing.T) {
	t.Setenv("SNET_RPC_ENDPOINT", "https://example.com")
	t.Setenv("SNET_PRIVATE_KEY", "ac0974")
	t.Setenv("SNET_MPE_ADDRESS", "not-an-address")
	_, err := Load()
	require.Error(t, err)
}

func TestKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80\n"), 0o600))

	cfg := &Config{PrivateKeyFile: path}
	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Equal(t, "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", key)
}

func TestDirLayout(t *testing.T) {
	cfg := &Config{
		StateDir:        "/tmp/snet-state",
		MPEAddress:      "0x5e592F9b1d303183d963635f895f0f0C48284f4e",
		RegistryAddress: "0xaAbd7b8fBd5A049738Ca6b9D70f466CeC00d2978",
	}
	assert.Equal(t, "/tmp/snet-state", cfg.CacheDir())
	want := filepath.Join("/tmp/snet-state", "metadata",
		"0x5e592f9b1d303183d963635f895f0f0c48284f4e_0xaabd7b8fbd5a049738ca6b9d70f466cec00d2978")
	assert.Equal(t, want, cfg.MetadataMirrorDir())
}
