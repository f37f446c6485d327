package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the farm service configuration. Amounts are decimal strings so
// wei-scale values survive the TOML round trip.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	Environment    string `toml:"Environment"`

	Accounts  Accounts  `toml:"Accounts"`
	Emission  Emission  `toml:"Emission"`
	Vesting   Vesting   `toml:"Vesting"`
	Auth      Auth      `toml:"Auth"`
	Telemetry Telemetry `toml:"Telemetry"`
}

// Accounts holds the privileged and module account addresses, hex encoded.
type Accounts struct {
	Owner          string `toml:"Owner"`
	FarmModule     string `toml:"FarmModule"`
	TreasuryModule string `toml:"TreasuryModule"`
	Operator       string `toml:"Operator"`
	FeeCollector   string `toml:"FeeCollector"`
	RewardAsset    string `toml:"RewardAsset"`
}

// Emission is the reward schedule applied at startup when no schedule is
// persisted yet.
type Emission struct {
	RewardPerBlock string `toml:"RewardPerBlock"`
	StartHeight    uint64 `toml:"StartHeight"`
	DurationBlocks uint64 `toml:"DurationBlocks"`
	OperatorBps    uint64 `toml:"OperatorBps"`
}

// Vesting mirrors the treasury parameters.
type Vesting struct {
	WeekSeconds         uint64 `toml:"WeekSeconds"`
	LockupWeeks         uint64 `toml:"LockupWeeks"`
	BurnBps             uint64 `toml:"BurnBps"`
	UnlockOffsetSeconds uint64 `toml:"UnlockOffsetSeconds"`
}

// Auth configures the gateway's bearer-token verification.
type Auth struct {
	Enabled    bool   `toml:"Enabled"`
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
}

// Telemetry configures the optional OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// Load reads and validates the configuration at path. A missing file yields
// the defaults, which are sufficient for a local in-memory run.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		ListenAddress:  ":8080",
		MetricsAddress: ":9090",
		Environment:    "dev",
		Accounts: Accounts{
			Owner:          "0x0000000000000000000000000000000000000001",
			FarmModule:     "0x0000000000000000000000000000000000000002",
			TreasuryModule: "0x0000000000000000000000000000000000000003",
			Operator:       "0x0000000000000000000000000000000000000004",
			FeeCollector:   "0x0000000000000000000000000000000000000005",
			RewardAsset:    "0x0000000000000000000000000000000000000010",
		},
		Emission: Emission{
			RewardPerBlock: "1000000000000000000",
			DurationBlocks: 10_512_000,
		},
		Vesting: Vesting{
			WeekSeconds: 604_800,
			LockupWeeks: 13,
			BurnBps:     5000,
		},
	}
}

// Validate checks addresses and numeric fields for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	for name, addr := range map[string]string{
		"Accounts.Owner":          c.Accounts.Owner,
		"Accounts.FarmModule":     c.Accounts.FarmModule,
		"Accounts.TreasuryModule": c.Accounts.TreasuryModule,
		"Accounts.Operator":       c.Accounts.Operator,
		"Accounts.FeeCollector":   c.Accounts.FeeCollector,
		"Accounts.RewardAsset":    c.Accounts.RewardAsset,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a valid address: %q", name, addr)
		}
	}
	if _, err := c.RewardPerBlock(); err != nil {
		return err
	}
	if c.Emission.OperatorBps > 10_000 {
		return fmt.Errorf("config: Emission.OperatorBps exceeds 10000")
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return fmt.Errorf("config: Auth.HMACSecret required when auth is enabled")
	}
	return nil
}

// RewardPerBlock parses the emission rate.
func (c *Config) RewardPerBlock() (*big.Int, error) {
	raw := strings.TrimSpace(c.Emission.RewardPerBlock)
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: Emission.RewardPerBlock is not a non-negative decimal: %q", raw)
	}
	return value, nil
}

// Address parses a validated hex address field.
func Address(raw string) common.Address {
	return common.HexToAddress(raw)
}
