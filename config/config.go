package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"padipay/core/genesis"
)

// EnvPrefix prefixes every environment override, e.g. PADIPAY_RPC_ADDRESS.
const EnvPrefix = "PADIPAY"

type Config struct {
	ChainID     uint64               `toml:"ChainID" envconfig:"CHAIN_ID"`
	DataDir     string               `toml:"DataDir" envconfig:"DATA_DIR"`
	GenesisFile string               `toml:"GenesisFile" envconfig:"GENESIS_FILE"`
	Genesis     *genesis.GenesisSpec `toml:"Genesis,omitempty" ignored:"true"`
	Storage     Storage              `toml:"Storage"`
	RPC         RPC                  `toml:"RPC"`
	Logging     Logging              `toml:"Logging"`
	Telemetry   Telemetry            `toml:"Telemetry"`
	Wallet      Wallet               `toml:"Wallet"`
	Quota       Quota                `toml:"Quota"`

	path string
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	cfg.path = path

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays PADIPAY_* environment variables onto cfg. Unset
// variables leave the file values untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("apply environment overrides: %w", err)
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./padipay-data"
	}
	if strings.TrimSpace(c.RPC.Address) == "" {
		c.RPC.Address = ":8545"
	}
	if c.RPC.ReadHeaderTimeout <= 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.RPC.ReadTimeout <= 0 {
		c.RPC.ReadTimeout = 15
	}
	if c.RPC.WriteTimeout <= 0 {
		c.RPC.WriteTimeout = 15
	}
	if c.RPC.IdleTimeout <= 0 {
		c.RPC.IdleTimeout = 60
	}
	if c.RPC.MaxBodyBytes == 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.Storage.AuditLog == "" {
		c.Storage.AuditLog = filepath.Join(c.DataDir, "audit.db")
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "dev"
	}
	if c.Wallet.Sponsors == nil {
		c.Wallet.Sponsors = []string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ChainID: 1,
		DataDir: "./padipay-data",
		RPC: RPC{
			Address:         ":8545",
			JWTSecretEnv:    "PADIPAY_JWT_SECRET",
			RateLimitPerSec: 20,
			RateLimitBurst:  40,
		},
		Logging: Logging{Level: "info", Environment: "dev"},
		Wallet:  Wallet{Sponsors: []string{}},
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
