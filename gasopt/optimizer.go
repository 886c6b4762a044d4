// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/gastuner/util/gasmath"
)

const (
	highCongestionThreshold = 0.8
	lowCongestionThreshold  = 0.3
)

var (
	highCongestionBips = gasmath.PercentToBips(120)
	lowCongestionBips  = gasmath.PercentToBips(90)
)

// Optimizer computes recommended gas prices and buffered gas limits for
// transactions bound for an Ethereum-compatible L2. It owns a bounded
// rolling history of its estimates; all network state comes from the
// injected NetworkReader.
type Optimizer struct {
	client       NetworkReader
	maxGasPrice  *big.Int
	defaultTip   *big.Int
	bufferBips   gasmath.Bips
	batchSize    int
	priorityBips map[Priority]gasmath.Bips
	history      *estimateHistory
}

// NewOptimizer validates the configuration and builds an engine bound
// to the given network reader. Configuration problems are rejected here
// rather than producing silently wrong prices later.
func NewOptimizer(config *Config, client NetworkReader) (*Optimizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	bufferBips, err := gasmath.FloatToBips(config.GasBuffer)
	if err != nil {
		return nil, err
	}
	priorityBips := make(map[Priority]gasmath.Bips)
	for priority, multiplier := range map[Priority]float64{
		PrioritySlow:     config.Priority.Slow,
		PriorityStandard: config.Priority.Standard,
		PriorityFast:     config.Priority.Fast,
		PriorityInstant:  config.Priority.Instant,
	} {
		bips, err := gasmath.FloatToBips(multiplier)
		if err != nil {
			return nil, err
		}
		priorityBips[priority] = bips
	}
	return &Optimizer{
		client:       client,
		maxGasPrice:  gasmath.UintToBig(config.MaxGasPrice),
		defaultTip:   gasmath.UintToBig(config.DefaultTip),
		bufferBips:   bufferBips,
		batchSize:    config.BatchSize,
		priorityBips: priorityBips,
		history:      newEstimateHistory(config.HistorySize),
	}, nil
}

// OptimalGasPrice returns the suggested network gas price adjusted for
// congestion in the latest block and clamped to the configured maximum.
// When the latest block cannot be read the raw suggested price is used
// and the quote is marked Degraded; a failed price fetch is the only
// error path.
func (o *Optimizer) OptimalGasPrice(ctx context.Context) (PriceQuote, error) {
	price, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("fetching suggested gas price: %w", err)
	}
	quote := PriceQuote{Price: new(big.Int).Set(price)}
	header, err := o.client.HeaderByNumber(ctx, nil)
	if err != nil {
		log.Warn("failed to read latest block, using unadjusted gas price", "err", err)
		quote.Degraded = true
		quote.Price = gasmath.BigMin(quote.Price, o.maxGasPrice)
		return quote, nil
	}
	adjusted := o.adjustForCongestion(quote.Price, header, &quote)
	quote.Price = gasmath.BigMin(adjusted, o.maxGasPrice)
	log.Debug("computed optimal gas price", "price", quote.Price, "congestion", quote.Congestion, "degraded", quote.Degraded)
	return quote, nil
}

func (o *Optimizer) adjustForCongestion(price *big.Int, header *types.Header, quote *PriceQuote) *big.Int {
	if header.GasLimit == 0 {
		// congestion unknown, treat as the medium tier
		log.Warn("latest block reports zero gas limit, skipping congestion adjustment")
		return price
	}
	congestion := float64(header.GasUsed) / float64(header.GasLimit)
	quote.Congestion = congestion
	quote.CongestionKnown = true
	switch {
	case congestion > highCongestionThreshold:
		return gasmath.BigMulByBips(price, highCongestionBips)
	case congestion < lowCongestionThreshold:
		return gasmath.BigMulByBips(price, lowCongestionBips)
	default:
		return price
	}
}

// PriceForPriority scales the optimal price by the configured tier
// multiplier, then clamps to the maximum.
func (o *Optimizer) PriceForPriority(ctx context.Context, priority Priority) (PriceQuote, error) {
	bips, ok := o.priorityBips[priority]
	if !ok {
		return PriceQuote{}, fmt.Errorf("unknown priority %q", priority)
	}
	quote, err := o.OptimalGasPrice(ctx)
	if err != nil {
		return PriceQuote{}, err
	}
	quote.Price = gasmath.BigMin(gasmath.BigMulByBips(quote.Price, bips), o.maxGasPrice)
	return quote, nil
}

// EstimateGasWithBuffer simulates the transaction, applies the
// configured safety buffer (rounding down), and records the estimate.
// A failed simulation means the transaction would revert on chain, so
// the error surfaces to the caller unchanged and is never retried.
func (o *Optimizer) EstimateGasWithBuffer(ctx context.Context, tx *DraftTransaction) (uint64, error) {
	raw, err := o.client.EstimateGas(ctx, tx.callMsg())
	if err != nil {
		return 0, fmt.Errorf("estimating gas for call to %v: %w", tx.To, err)
	}
	buffered := gasmath.UintMulByBips(raw, o.bufferBips)
	o.history.add(EstimateRecord{
		Timestamp:        time.Now(),
		RawEstimate:      raw,
		BufferedEstimate: buffered,
	})
	return buffered, nil
}

// OptimizeContractCall prices and estimates a single call and stamps
// the EIP-1559 transaction shape on the result.
func (o *Optimizer) OptimizeContractCall(ctx context.Context, tx *DraftTransaction) (AnnotatedTransaction, error) {
	quote, err := o.OptimalGasPrice(ctx)
	if err != nil {
		return AnnotatedTransaction{}, err
	}
	gasLimit, err := o.EstimateGasWithBuffer(ctx, tx)
	if err != nil {
		return AnnotatedTransaction{}, err
	}
	return AnnotatedTransaction{
		DraftTransaction:     *tx,
		GasPrice:             quote.Price,
		GasLimit:             gasLimit,
		TxType:               types.DynamicFeeTxType,
		MaxFeePerGas:         quote.Price,
		MaxPriorityFeePerGas: new(big.Int).Set(o.defaultTip),
	}, nil
}

// ClearHistory discards all estimate records.
func (o *Optimizer) ClearHistory() {
	o.history.clear()
}
