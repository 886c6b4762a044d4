// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

// statsWindow is how many of the most recent records Stats samples.
const statsWindow = 10

// Stats summarizes recent estimation activity.
type Stats struct {
	// Count is the all-time number of estimates, including records
	// already evicted from the ring.
	Count uint64 `json:"count"`
	// Window is how many records the means below were computed over.
	Window               int     `json:"window"`
	MeanRawEstimate      float64 `json:"meanRawEstimate"`
	MeanBufferedEstimate float64 `json:"meanBufferedEstimate"`
	// BufferEfficiency is the mean overhead the buffer adds, in
	// percent. Zero when the mean raw estimate is zero.
	BufferEfficiency float64 `json:"bufferEfficiency"`
}

// Stats reports means over the most recent estimates. The second return
// is false when no estimates have been recorded.
func (o *Optimizer) Stats() (Stats, bool) {
	recent := o.history.recent(statsWindow)
	if len(recent) == 0 {
		return Stats{}, false
	}
	var rawSum, bufferedSum uint64
	for _, record := range recent {
		rawSum += record.RawEstimate
		bufferedSum += record.BufferedEstimate
	}
	stats := Stats{
		Count:                o.history.totalCount(),
		Window:               len(recent),
		MeanRawEstimate:      float64(rawSum) / float64(len(recent)),
		MeanBufferedEstimate: float64(bufferedSum) / float64(len(recent)),
	}
	if stats.MeanRawEstimate > 0 {
		stats.BufferEfficiency = (stats.MeanBufferedEstimate - stats.MeanRawEstimate) / stats.MeanRawEstimate * 100
	}
	return stats, true
}
