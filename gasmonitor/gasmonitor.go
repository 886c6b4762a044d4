// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/gastuner/gasopt"
	"github.com/offchainlabs/gastuner/util/gasmath"
	"github.com/offchainlabs/gastuner/util/redisutil"
	"github.com/offchainlabs/gastuner/util/retry"
	"github.com/offchainlabs/gastuner/util/stopwaiter"
)

var (
	latestPriceGauge  = metrics.NewRegisteredGauge("gastuner/price/latest", nil)
	averagePriceGauge = metrics.NewRegisteredGauge("gastuner/price/average", nil)
	congestionGauge   = metrics.NewRegisteredGaugeFloat64("gastuner/congestion/ratio", nil)
	degradedCounter   = metrics.NewRegisteredCounter("gastuner/poll/degraded", nil)
	pollErrorCounter  = metrics.NewRegisteredCounter("gastuner/poll/error", nil)
)

type Config struct {
	Interval        time.Duration `koanf:"interval"`
	AveragingWindow int           `koanf:"averaging-window"`
	RedisURL        string        `koanf:"redis-url"`
	RedisKey        string        `koanf:"redis-key"`
}

var DefaultConfig = Config{
	Interval:        15 * time.Second,
	AveragingWindow: 20,
	RedisURL:        "",
	RedisKey:        "gastuner.latest",
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".interval", DefaultConfig.Interval, "how often to poll the network for gas prices")
	f.Int(prefix+".averaging-window", DefaultConfig.AveragingWindow, "number of polls in the rolling price average")
	f.String(prefix+".redis-url", DefaultConfig.RedisURL, "if set, the latest quote is published to this redis instance")
	f.String(prefix+".redis-key", DefaultConfig.RedisKey, "redis key the latest quote is written to")
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %v", c.Interval)
	}
	if c.AveragingWindow < 1 {
		return fmt.Errorf("averaging-window must be >= 1, got %v", c.AveragingWindow)
	}
	return nil
}

// Report is a snapshot of the monitor's rolling view of the network.
type Report struct {
	HasData       bool              `json:"hasData"`
	Latest        gasopt.PriceQuote `json:"latest"`
	AveragePrice  *big.Int          `json:"averagePrice"`
	PeakPrice     *big.Int          `json:"peakPrice"`
	TroughPrice   *big.Int          `json:"troughPrice"`
	Polls         uint64            `json:"polls"`
	DegradedPolls uint64            `json:"degradedPolls"`
	FailedPolls   uint64            `json:"failedPolls"`
}

// Monitor periodically polls the optimizer for the current recommended
// price, keeps a rolling view, exports metrics, and optionally
// publishes the latest quote to Redis.
type Monitor struct {
	stopwaiter.StopWaiter
	config     *Config
	optimizer  *gasopt.Optimizer
	redis      redis.UniversalClient
	redisReady atomic.Bool

	mutex         sync.Mutex
	latest        gasopt.PriceQuote
	hasData       bool
	average       *gasmath.MovingAverage[int64]
	peak          *big.Int
	trough        *big.Int
	polls         uint64
	degradedPolls uint64
	failedPolls   uint64
}

func NewMonitor(config *Config, optimizer *gasopt.Optimizer) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	average, err := gasmath.NewMovingAverage[int64](config.AveragingWindow)
	if err != nil {
		return nil, err
	}
	redisClient, err := redisutil.RedisClientFromURL(config.RedisURL)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		config:    config,
		optimizer: optimizer,
		redis:     redisClient,
		average:   average,
	}, nil
}

func (m *Monitor) Start(ctx context.Context) error {
	if err := m.StopWaiter.Start(ctx, m); err != nil {
		return err
	}
	if m.redis != nil {
		m.LaunchThread(func(ctx context.Context) {
			_, err := retry.UntilSucceeds(ctx, func() (struct{}, error) {
				return struct{}{}, m.redis.Ping(ctx).Err()
			})
			if err != nil {
				return
			}
			log.Info("gas monitor connected to redis", "key", m.config.RedisKey)
			m.redisReady.Store(true)
		})
	}
	m.CallIteratively(m.poll)
	return nil
}

func (m *Monitor) StopAndWait() {
	m.StopWaiter.StopAndWait()
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			log.Warn("error closing redis client", "err", err)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) time.Duration {
	quote, err := m.optimizer.OptimalGasPrice(ctx)
	if err != nil {
		// transient: skip this sample and try again next interval
		log.Warn("gas monitor poll failed", "err", err)
		pollErrorCounter.Inc(1)
		m.mutex.Lock()
		m.failedPolls++
		m.mutex.Unlock()
		return m.config.Interval
	}
	m.record(quote)
	if m.redisReady.Load() {
		m.publish(ctx, quote)
	}
	return m.config.Interval
}

func (m *Monitor) record(quote gasopt.PriceQuote) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.latest = quote
	m.hasData = true
	m.polls++
	if quote.Degraded {
		m.degradedPolls++
		degradedCounter.Inc(1)
	}
	price := quote.Price
	if price.IsInt64() {
		m.average.Update(price.Int64())
		averagePriceGauge.Update(m.average.Average())
		latestPriceGauge.Update(price.Int64())
	}
	if quote.CongestionKnown {
		congestionGauge.Update(quote.Congestion)
	}
	if m.peak == nil || price.Cmp(m.peak) > 0 {
		m.peak = new(big.Int).Set(price)
	}
	if m.trough == nil || price.Cmp(m.trough) < 0 {
		m.trough = new(big.Int).Set(price)
	}
}

func (m *Monitor) publish(ctx context.Context, quote gasopt.PriceQuote) {
	payload, err := json.Marshal(quote)
	if err != nil {
		log.Error("error marshalling gas quote", "err", err)
		return
	}
	if err := m.redis.Set(ctx, m.config.RedisKey, payload, 0).Err(); err != nil {
		log.Warn("error publishing gas quote to redis", "key", m.config.RedisKey, "err", err)
	}
}

// Report returns the monitor's current rolling view. HasData is false
// until the first successful poll.
func (m *Monitor) Report() Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	report := Report{
		HasData:       m.hasData,
		Latest:        m.latest,
		Polls:         m.polls,
		DegradedPolls: m.degradedPolls,
		FailedPolls:   m.failedPolls,
	}
	if m.hasData {
		report.AveragePrice = big.NewInt(m.average.Average())
		report.PeakPrice = new(big.Int).Set(m.peak)
		report.TroughPrice = new(big.Int).Set(m.trough)
	}
	return report
}
