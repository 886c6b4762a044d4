// Copyright 2023, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasmath

import "fmt"

// MovingAverage is a simple moving average over the last `period` samples.
// A MovingAverage with no samples yet averages to zero. Not safe for
// concurrent use.
type MovingAverage[T Number] struct {
	buffer    []T
	bufferPos int
	sum       T
}

func NewMovingAverage[T Number](period int) (*MovingAverage[T], error) {
	if period <= 0 {
		return nil, fmt.Errorf("moving average period must be positive, got %v", period)
	}
	return &MovingAverage[T]{
		buffer: make([]T, 0, period),
	}, nil
}

func (a *MovingAverage[T]) Update(value T) {
	period := cap(a.buffer)
	if len(a.buffer) < period {
		a.buffer = append(a.buffer, value)
		a.sum += value
		return
	}
	a.sum -= a.buffer[a.bufferPos]
	a.sum += value
	a.buffer[a.bufferPos] = value
	a.bufferPos = (a.bufferPos + 1) % period
}

// Average returns the average of the samples seen so far, or zero if
// there are none.
func (a *MovingAverage[T]) Average() T {
	if len(a.buffer) == 0 {
		return 0
	}
	return a.sum / T(len(a.buffer))
}
