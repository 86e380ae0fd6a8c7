// Package config loads client settings from the environment with sane
// mainnet defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the full client configuration. Every field can be set through
// the environment; addresses default to the Ethereum mainnet deployment.
type Config struct {
	// RPCEndpoint is the JSON-RPC URL of an Ethereum node.
	RPCEndpoint string `env:"SNET_RPC_ENDPOINT,notEmpty"`
	// PrivateKey is the hex-encoded signing key. Prefer PrivateKeyFile in
	// anything beyond throwaway setups.
	PrivateKey     string `env:"SNET_PRIVATE_KEY"`
	PrivateKeyFile string `env:"SNET_PRIVATE_KEY_FILE,expand"`

	MPEAddress      string `env:"SNET_MPE_ADDRESS" envDefault:"0x5e592F9b1d303183d963635f895f0f0C48284f4e"`
	RegistryAddress string `env:"SNET_REGISTRY_ADDRESS" envDefault:"0xaAbd7b8fBd5A049738Ca6b9D70f466CeC00d2978"`
	TokenAddress    string `env:"SNET_TOKEN_ADDRESS" envDefault:"0x8eB24319393716668D768dCEC29356ae9CfFe285"`

	IPFSGateway string `env:"SNET_IPFS_GATEWAY" envDefault:"https://ipfs.singularitynet.io"`
	// StateDir holds the channel cache and metadata mirror.
	StateDir string `env:"SNET_STATE_DIR,expand" envDefault:"${HOME}/.snet"`

	LogLevel string `env:"SNET_LOG_LEVEL" envDefault:"info"`
	// MetricsAddr, when set, exposes prometheus metrics over HTTP at
	// /metrics on this listen address.
	MetricsAddr string `env:"SNET_METRICS_ADDR"`

	// WaitConfirmations is how deep a write's block must be buried before
	// the call returns. 1 returns on the first receipt.
	WaitConfirmations uint64 `env:"SNET_WAIT_CONFIRMATIONS" envDefault:"1"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, addr := range map[string]string{
		"SNET_MPE_ADDRESS":      c.MPEAddress,
		"SNET_REGISTRY_ADDRESS": c.RegistryAddress,
		"SNET_TOKEN_ADDRESS":    c.TokenAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: %q is not a hex address", name, addr)
		}
	}
	if c.PrivateKey == "" && c.PrivateKeyFile == "" {
		return fmt.Errorf("either SNET_PRIVATE_KEY or SNET_PRIVATE_KEY_FILE must be set")
	}
	return nil
}

// Key returns the signing key hex, reading PrivateKeyFile when the inline
// key is unset.
func (c *Config) Key() (string, error) {
	if c.PrivateKey != "" {
		return c.PrivateKey, nil
	}
	raw, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// CacheDir is where the channel cache lives.
func (c *Config) CacheDir() string {
	return c.StateDir
}

// MetadataMirrorDir is where resolved metadata documents are mirrored.
// Scoped by the contract pair so switching networks never mixes documents.
func (c *Config) MetadataMirrorDir() string {
	scope := strings.ToLower(c.MPEAddress) + "_" + strings.ToLower(c.RegistryAddress)
	return filepath.Join(c.StateDir, "metadata", scope)
}
