// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasmath

import "math/big"

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type Integer interface {
	Signed | Unsigned
}

type Float interface {
	~float32 | ~float64
}

// Number is anything that implements operators such as `<`, `+` and `/`.
// Unfortunately, that doesn't include big ints.
type Number interface {
	Integer | Float
}

// MinInt the minimum of two ints
func MinInt[T Number](value, ceiling T) T {
	if value > ceiling {
		return ceiling
	}
	return value
}

// BigMin the minimum of two big ints
func BigMin(value, ceiling *big.Int) *big.Int {
	if value.Cmp(ceiling) > 0 {
		return new(big.Int).Set(ceiling)
	}
	return new(big.Int).Set(value)
}

// UintToBig casts an int to a huge
func UintToBig(value uint64) *big.Int {
	return new(big.Int).SetUint64(value)
}
