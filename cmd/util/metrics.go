// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package util

import (
	"fmt"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"

	"github.com/offchainlabs/gastuner/cmd/genericconf"
)

// StartMetrics checks the metrics flag and runs the metrics server if
// enabled. metrics.Enabled can only be set from the command line, so a
// json config asking for metrics without the flag is an error.
func StartMetrics(enabled bool, cfg *genericconf.MetricsServerConfig) error {
	if !enabled {
		return nil
	}
	if !metrics.Enabled {
		return fmt.Errorf("metrics must be enabled via command line by adding --metrics, json config has no effect")
	}
	go metrics.CollectProcessMetrics(cfg.UpdateInterval)
	exp.Setup(fmt.Sprintf("%v:%v", cfg.Addr, cfg.Port))
	return nil
}
