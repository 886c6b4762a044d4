// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// NetworkReader is the slice of an L2 node's RPC surface the optimizer
// consumes. *ethclient.Client and *rpcclient.Client both satisfy it.
type NetworkReader interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// DraftTransaction is a caller-supplied transaction body. The optimizer
// only reads it, it never submits it.
type DraftTransaction struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *big.Int        `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

func (tx *DraftTransaction) callMsg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  tx.From,
		To:    tx.To,
		Value: tx.Value,
		Data:  tx.Data,
	}
}

// AnnotatedTransaction is a draft transaction stamped with the
// optimizer's pricing decisions, ready for the caller to sign and
// submit.
type AnnotatedTransaction struct {
	DraftTransaction
	GasPrice *big.Int `json:"gasPrice"`
	GasLimit uint64   `json:"gasLimit"`

	// EIP-1559 fields, only set by OptimizeContractCall
	TxType               uint8    `json:"type,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// PriceQuote is the result of a gas price query. Degraded reports that
// the congestion adjustment could not be applied and the raw suggested
// price was used instead, so callers can tell fallback from nominal
// operation.
type PriceQuote struct {
	Price           *big.Int `json:"price"`
	Congestion      float64  `json:"congestion"`
	CongestionKnown bool     `json:"congestionKnown"`
	Degraded        bool     `json:"degraded"`
}

// EstimateRecord captures one gas estimation. Immutable once created.
type EstimateRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	RawEstimate      uint64    `json:"rawEstimate"`
	BufferedEstimate uint64    `json:"bufferedEstimate"`
}

// Priority names a transaction urgency tier with a configured price
// multiplier.
type Priority string

const (
	PrioritySlow     Priority = "slow"
	PriorityStandard Priority = "standard"
	PriorityFast     Priority = "fast"
	PriorityInstant  Priority = "instant"
)
