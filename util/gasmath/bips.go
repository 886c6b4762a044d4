// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasmath

import (
	"fmt"
	"math"
	"math/big"
)

// Bips is a fee multiplier expressed in basis points, so that tier and
// priority adjustments stay in exact integer math.
type Bips int64

const OneInBips Bips = 10000

func PercentToBips(percentage int64) Bips {
	return Bips(percentage) * 100
}

// FloatToBips converts a multiplier such as 1.10 into basis points,
// rounding to the nearest bip. Returns an error for NaN, infinities and
// negative multipliers.
func FloatToBips(multiplier float64) (Bips, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier < 0 {
		return 0, fmt.Errorf("invalid multiplier %v", multiplier)
	}
	return Bips(math.Round(multiplier * float64(OneInBips))), nil
}

func BigMulByBips(value *big.Int, bips Bips) *big.Int {
	result := new(big.Int).Mul(value, big.NewInt(int64(bips)))
	return result.Div(result, big.NewInt(int64(OneInBips)))
}

// UintMulByBips scales a uint64 by basis points, rounding down. The
// intermediate product is carried in a big.Int so large gas values
// cannot overflow.
func UintMulByBips(value uint64, bips Bips) uint64 {
	result := BigMulByBips(new(big.Int).SetUint64(value), bips)
	if !result.IsUint64() {
		return math.MaxUint64
	}
	return result.Uint64()
}
