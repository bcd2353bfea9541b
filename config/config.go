package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"collectvault/crypto"
)

type Config struct {
	RPCAddress    string `toml:"RPCAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`
	AdminAddress  string `toml:"AdminAddress"`
	RecordDeposit uint64 `toml:"RecordDeposit"`
	AuditFee      uint64 `toml:"AuditFee"`
	RPCAuthToken  string `toml:"RPCAuthToken"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "cvt-local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded values without touching the filesystem.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if strings.TrimSpace(c.AdminAddress) == "" {
		return fmt.Errorf("AdminAddress must not be empty")
	}
	if _, err := crypto.DecodeAddress(c.AdminAddress); err != nil {
		return fmt.Errorf("AdminAddress: %w", err)
	}
	if c.RecordDeposit == 0 {
		return fmt.Errorf("RecordDeposit must be positive")
	}
	return nil
}

// Admin returns the decoded administrator address.
func (c *Config) Admin() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.AdminAddress)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

// createDefault creates and saves a default configuration file. The default
// admin identity is freshly generated so every node ships with its own; the
// operator replaces it before joining a shared deployment.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:    ":8080",
		DataDir:       "./cvt-data",
		NetworkName:   "cvt-local",
		AdminAddress:  key.PubKey().Address().String(),
		RecordDeposit: 1_000_000,
		AuditFee:      250_000,
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
