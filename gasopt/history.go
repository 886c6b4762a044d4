// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package gasopt

import "sync"

// estimateHistory is a bounded ring buffer of estimate records. Once
// full, the oldest record is evicted. Safe for concurrent use, since
// batch workers append from multiple goroutines.
type estimateHistory struct {
	mutex   sync.Mutex
	records []EstimateRecord
	pos     int
	count   int
	total   uint64
}

func newEstimateHistory(capacity int) *estimateHistory {
	return &estimateHistory{
		records: make([]EstimateRecord, capacity),
	}
}

func (h *estimateHistory) add(record EstimateRecord) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.records[h.pos] = record
	h.pos = (h.pos + 1) % len(h.records)
	if h.count < len(h.records) {
		h.count++
	}
	h.total++
}

// recent returns up to n of the most recent records, oldest first.
func (h *estimateHistory) recent(n int) []EstimateRecord {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if n > h.count {
		n = h.count
	}
	size := len(h.records)
	res := make([]EstimateRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.pos - n + i + size) % size
		res = append(res, h.records[idx])
	}
	return res
}

// totalCount returns the all-time number of records added, including
// evicted ones.
func (h *estimateHistory) totalCount() uint64 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.total
}

func (h *estimateHistory) clear() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.pos = 0
	h.count = 0
	h.total = 0
}
