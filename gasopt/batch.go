// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/offchainlabs/gastuner/util/gasmath"
)

// BatchTransactions annotates the given transactions with individually
// computed gas prices and buffered limits. Input order is preserved.
// Transactions are processed in contiguous groups of at most the
// configured batch size; each group fans out one goroutine per
// transaction and is fully collected before the next group starts,
// bounding in-flight RPC calls. If any transaction in a group fails,
// the whole call fails with an error naming the transaction's index
// within its group.
func (o *Optimizer) BatchTransactions(ctx context.Context, txs []DraftTransaction) ([]AnnotatedTransaction, error) {
	annotated := make([]AnnotatedTransaction, len(txs))
	for start := 0; start < len(txs); start += o.batchSize {
		end := gasmath.MinInt(start+o.batchSize, len(txs))
		group, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			group.Go(func() error {
				quote, err := o.OptimalGasPrice(groupCtx)
				if err != nil {
					return fmt.Errorf("pricing transaction %d: %w", i-start, err)
				}
				gasLimit, err := o.EstimateGasWithBuffer(groupCtx, &txs[i])
				if err != nil {
					return fmt.Errorf("transaction %d: %w", i-start, err)
				}
				annotated[i] = AnnotatedTransaction{
					DraftTransaction: txs[i],
					GasPrice:         quote.Price,
					GasLimit:         gasLimit,
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, fmt.Errorf("annotating group starting at transaction %d: %w", start, err)
		}
	}
	return annotated, nil
}
