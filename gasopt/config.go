// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/params"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/gastuner/util/gasmath"
)

type PriorityConfig struct {
	Slow     float64 `koanf:"slow"`
	Standard float64 `koanf:"standard"`
	Fast     float64 `koanf:"fast"`
	Instant  float64 `koanf:"instant"`
}

var DefaultPriorityConfig = PriorityConfig{
	Slow:     0.90,
	Standard: 1.00,
	Fast:     1.10,
	Instant:  1.25,
}

func PriorityConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Float64(prefix+".slow", DefaultPriorityConfig.Slow, "price multiplier for the slow tier")
	f.Float64(prefix+".standard", DefaultPriorityConfig.Standard, "price multiplier for the standard tier")
	f.Float64(prefix+".fast", DefaultPriorityConfig.Fast, "price multiplier for the fast tier")
	f.Float64(prefix+".instant", DefaultPriorityConfig.Instant, "price multiplier for the instant tier")
}

type Config struct {
	MaxGasPrice uint64         `koanf:"max-gas-price"`
	GasBuffer   float64        `koanf:"gas-buffer"`
	BatchSize   int            `koanf:"batch-size"`
	HistorySize int            `koanf:"history-size"`
	DefaultTip  uint64         `koanf:"default-tip"`
	Priority    PriorityConfig `koanf:"priority"`
}

var DefaultConfig = Config{
	MaxGasPrice: 20 * params.GWei,
	GasBuffer:   1.10,
	BatchSize:   10,
	HistorySize: 1024,
	DefaultTip:  params.GWei,
	Priority:    DefaultPriorityConfig,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Uint64(prefix+".max-gas-price", DefaultConfig.MaxGasPrice, "upper bound on the recommended gas price in wei")
	f.Float64(prefix+".gas-buffer", DefaultConfig.GasBuffer, "safety multiplier applied to raw gas estimates (must be >= 1.0)")
	f.Int(prefix+".batch-size", DefaultConfig.BatchSize, "maximum number of transactions estimated concurrently per group")
	f.Int(prefix+".history-size", DefaultConfig.HistorySize, "number of estimate records kept in memory")
	f.Uint64(prefix+".default-tip", DefaultConfig.DefaultTip, "priority fee in wei stamped on EIP-1559 style transactions")
	PriorityConfigAddOptions(prefix+".priority", f)
}

func (c *Config) Validate() error {
	if c.MaxGasPrice == 0 {
		return fmt.Errorf("max-gas-price must be positive")
	}
	if c.GasBuffer < 1.0 {
		return fmt.Errorf("gas-buffer %v would under-fund transactions, must be >= 1.0", c.GasBuffer)
	}
	if _, err := gasmath.FloatToBips(c.GasBuffer); err != nil {
		return fmt.Errorf("invalid gas-buffer: %w", err)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch-size must be >= 1, got %v", c.BatchSize)
	}
	if c.HistorySize < statsWindow {
		return fmt.Errorf("history-size must be >= %v, got %v", statsWindow, c.HistorySize)
	}
	for name, multiplier := range map[string]float64{
		"slow":     c.Priority.Slow,
		"standard": c.Priority.Standard,
		"fast":     c.Priority.Fast,
		"instant":  c.Priority.Instant,
	} {
		if _, err := gasmath.FloatToBips(multiplier); err != nil || multiplier <= 0 {
			return fmt.Errorf("invalid %v priority multiplier %v", name, multiplier)
		}
	}
	return nil
}
