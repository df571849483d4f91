package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"padipay/core/genesis"
	"padipay/crypto"
	"padipay/native/common"
)

// SenderQuota parses the configured payment quota into its runtime form.
func (c *Config) SenderQuota() (common.Quota, error) {
	quota := common.Quota{
		MaxRequestsPerEpoch: c.Quota.MaxRequestsPerEpoch,
		EpochSeconds:        c.Quota.EpochSeconds,
	}
	volume, err := parseUintAmount(c.Quota.MaxVolumePerEpoch)
	if err != nil {
		return quota, fmt.Errorf("invalid Quota.MaxVolumePerEpoch: %w", err)
	}
	quota.MaxVolumePerEpoch = volume
	return quota, nil
}

// SponsorAddresses decodes the paymaster allowlist.
func (c *Config) SponsorAddresses() ([][20]byte, error) {
	out := make([][20]byte, 0, len(c.Wallet.Sponsors))
	for _, raw := range c.Wallet.Sponsors {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid Wallet.Sponsors entry %q: %w", raw, err)
		}
		out = append(out, addr.Raw())
	}
	return out, nil
}

// JWTSecret returns the HMAC secret for RPC bearer tokens, reading it from
// the named environment variable when JWTSecretEnv is set.
func (c *Config) JWTSecret() (string, error) {
	if env := strings.TrimSpace(c.RPC.JWTSecretEnv); env != "" {
		value := strings.TrimSpace(os.Getenv(env))
		if value == "" {
			return "", fmt.Errorf("environment variable %s is empty", env)
		}
		return value, nil
	}
	return strings.TrimSpace(c.RPC.JWTSecret), nil
}

// GenesisSpec returns the genesis to apply on an empty store: the file named
// by GenesisFile (relative to the config file), else the inline Genesis
// table, else nil.
func (c *Config) GenesisSpec() (*genesis.GenesisSpec, error) {
	if path := strings.TrimSpace(c.GenesisFile); path != "" {
		if !filepath.IsAbs(path) && c.path != "" {
			path = filepath.Join(filepath.Dir(c.path), path)
		}
		return genesis.LoadGenesisSpec(path)
	}
	if c.Genesis == nil {
		return nil, nil
	}
	if err := c.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Genesis table: %w", err)
	}
	return c.Genesis, nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}
