// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasmonitor

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/offchainlabs/gastuner/gasopt"
	"github.com/offchainlabs/gastuner/util/redisutil"
	"github.com/offchainlabs/gastuner/util/testhelpers"
)

type sequenceNetwork struct {
	mutex  sync.Mutex
	prices []int64
	next   int
}

func (s *sequenceNetwork) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	price := s.prices[s.next]
	if s.next < len(s.prices)-1 {
		s.next++
	}
	return big.NewInt(price), nil
}

func (s *sequenceNetwork) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), GasUsed: 500, GasLimit: 1000}, nil
}

func (s *sequenceNetwork) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func newTestMonitor(t *testing.T, config Config, network gasopt.NetworkReader) *Monitor {
	t.Helper()
	optimizer, err := gasopt.NewOptimizer(&gasopt.DefaultConfig, network)
	Require(t, err)
	monitor, err := NewMonitor(&config, optimizer)
	Require(t, err)
	return monitor
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			testhelpers.FailImpl(t, "timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorRollingView(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := &sequenceNetwork{prices: []int64{100, 300, 200}}
	config := DefaultConfig
	config.Interval = 5 * time.Millisecond
	config.AveragingWindow = 10

	monitor := newTestMonitor(t, config, network)
	Require(t, monitor.Start(ctx))
	defer monitor.StopAndWait()

	waitFor(t, func() bool { return monitor.Report().Polls >= 3 })
	report := monitor.Report()
	if !report.HasData {
		Fail(t, "report should have data after polling")
	}
	if report.PeakPrice.Int64() != 300 {
		Fail(t, "expected peak 300, got", report.PeakPrice)
	}
	if report.TroughPrice.Int64() != 100 {
		Fail(t, "expected trough 100, got", report.TroughPrice)
	}
	if report.DegradedPolls != 0 || report.FailedPolls != 0 {
		Fail(t, "polls against a healthy network should be nominal")
	}
}

func TestMonitorEmptyReport(t *testing.T) {
	network := &sequenceNetwork{prices: []int64{100}}
	monitor := newTestMonitor(t, DefaultConfig, network)
	report := monitor.Report()
	if report.HasData || report.AveragePrice != nil {
		Fail(t, "report before the first poll should be empty")
	}
}

func TestMonitorPublishesToRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := &sequenceNetwork{prices: []int64{150}}
	config := DefaultConfig
	config.Interval = 5 * time.Millisecond
	config.RedisURL = redisutil.CreateTestRedis(ctx, t)
	config.RedisKey = "test.gastuner.latest"

	monitor := newTestMonitor(t, config, network)
	Require(t, monitor.Start(ctx))
	defer monitor.StopAndWait()

	redisClient, err := redisutil.RedisClientFromURL(config.RedisURL)
	Require(t, err)
	defer redisClient.Close()

	var payload string
	waitFor(t, func() bool {
		var redisErr error
		payload, redisErr = redisClient.Get(ctx, config.RedisKey).Result()
		return redisErr == nil
	})
	var quote gasopt.PriceQuote
	Require(t, json.Unmarshal([]byte(payload), &quote))
	if quote.Price.Int64() != 150 {
		Fail(t, "published quote should carry the recommended price, got", quote.Price)
	}
}

func Require(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	testhelpers.RequireImpl(t, err, printables...)
}

func Fail(t *testing.T, printables ...interface{}) {
	t.Helper()
	testhelpers.FailImpl(t, printables...)
}
