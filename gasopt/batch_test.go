// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/google/go-cmp/cmp"
)

var bigIntComparer = cmp.Comparer(func(x, y *big.Int) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Cmp(y) == 0
})

func makeDrafts(n int) []DraftTransaction {
	drafts := make([]DraftTransaction, n)
	for i := range drafts {
		drafts[i].Value = big.NewInt(int64(i))
	}
	return drafts
}

func TestBatchTransactionsOrderAndLength(t *testing.T) {
	ctx := context.Background()
	network := &stubNetwork{gasPrice: big.NewInt(100), gasUsed: 500, gasLimit: 1000, estimate: 21000}

	optimizer := newTestOptimizer(t, DefaultConfig, network)
	drafts := makeDrafts(25)
	annotated, err := optimizer.BatchTransactions(ctx, drafts)
	Require(t, err)
	if len(annotated) != len(drafts) {
		Fail(t, "expected", len(drafts), "annotated transactions, got", len(annotated))
	}
	for i, tx := range annotated {
		if diff := cmp.Diff(drafts[i], tx.DraftTransaction, bigIntComparer); diff != "" {
			Fail(t, "transaction", i, "body changed:", diff)
		}
		if tx.GasPrice.Int64() != 100 || tx.GasLimit != 23100 {
			Fail(t, "transaction", i, "misannotated", tx.GasPrice, tx.GasLimit)
		}
	}
	// 25 transactions priced and estimated individually
	if network.estimateCalls != 25 {
		Fail(t, "expected 25 estimation calls, got", network.estimateCalls)
	}
}

func TestBatchTransactionsBoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	network := &stubNetwork{
		gasPrice:    big.NewInt(100),
		gasUsed:     500,
		gasLimit:    1000,
		estimate:    21000,
		estimateLag: 20 * time.Millisecond,
	}
	config := DefaultConfig
	config.BatchSize = 10

	optimizer := newTestOptimizer(t, config, network)
	_, err := optimizer.BatchTransactions(ctx, makeDrafts(25))
	Require(t, err)
	if network.maxInFlight > config.BatchSize {
		Fail(t, "saw", network.maxInFlight, "concurrent estimations, batch size is", config.BatchSize)
	}
	if network.maxInFlight < 2 {
		Fail(t, "group members should be estimated in parallel")
	}
}

func TestBatchTransactionsEmpty(t *testing.T) {
	ctx := context.Background()
	network := &stubNetwork{gasPrice: big.NewInt(100), gasUsed: 500, gasLimit: 1000}

	optimizer := newTestOptimizer(t, DefaultConfig, network)
	annotated, err := optimizer.BatchTransactions(ctx, nil)
	Require(t, err)
	if len(annotated) != 0 {
		Fail(t, "empty input should yield empty output")
	}
}

func TestBatchTransactionsGroupFailure(t *testing.T) {
	ctx := context.Background()
	revertErr := errors.New("execution reverted")
	network := &stubNetwork{
		gasPrice: big.NewInt(100),
		gasUsed:  500,
		gasLimit: 1000,
		estimate: 21000,
		estimateErr: func(msg ethereum.CallMsg) error {
			// transaction 13 overall, index 3 within the second group
			if msg.Value != nil && msg.Value.Int64() == 13 {
				return revertErr
			}
			return nil
		},
	}
	config := DefaultConfig
	config.BatchSize = 10

	optimizer := newTestOptimizer(t, config, network)
	_, err := optimizer.BatchTransactions(ctx, makeDrafts(25))
	if !errors.Is(err, revertErr) {
		Fail(t, "group failure must propagate the underlying error, got", err)
	}
	if !strings.Contains(err.Error(), "transaction 3") || !strings.Contains(err.Error(), "transaction 10") {
		Fail(t, "error should name the failing index and its group:", err)
	}
}
