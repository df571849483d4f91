package config

import (
	"fmt"
	"strings"
)

var validLevels = map[string]struct{}{"": {}, "debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}

// Validate checks the loaded configuration for values the node cannot run
// with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(c.RPC.Address) == "" {
		return fmt.Errorf("RPC.Address must be set")
	}
	if c.RPC.RateLimitPerSec < 0 {
		return fmt.Errorf("RPC.RateLimitPerSec must not be negative")
	}
	if c.RPC.RateLimitPerSec > 0 && c.RPC.RateLimitBurst < 1 {
		return fmt.Errorf("RPC.RateLimitBurst must be at least 1 when rate limiting is enabled")
	}
	if c.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("RPC.MaxBodyBytes must not be negative")
	}
	if _, ok := validLevels[strings.ToLower(strings.TrimSpace(c.Logging.Level))]; !ok {
		return fmt.Errorf("Logging.Level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("Telemetry.SampleRatio must be within [0,1]")
	}
	if c.GenesisFile != "" && c.Genesis != nil {
		return fmt.Errorf("GenesisFile and the Genesis table are mutually exclusive")
	}
	if c.Genesis != nil && c.Genesis.ChainID != nil && c.ChainID != 0 && *c.Genesis.ChainID != c.ChainID {
		return fmt.Errorf("ChainID %d does not match Genesis.ChainID %d", c.ChainID, *c.Genesis.ChainID)
	}
	if c.Quota.MaxRequestsPerEpoch > 0 && c.Quota.EpochSeconds == 0 {
		return fmt.Errorf("Quota.EpochSeconds must be set when a quota limit is configured")
	}
	if _, err := c.SenderQuota(); err != nil {
		return err
	}
	if _, err := c.SponsorAddresses(); err != nil {
		return err
	}
	return nil
}
