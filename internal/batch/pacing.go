package batch

import "time"

// Pacing spaces out remote calls between batches. A fixed delay follows every
// batch, with a longer pause after every Nth batch. No delay follows the
// final batch.
type Pacing struct {
	InterBatchDelay time.Duration
	EveryNBatches   int
	ExtraDelay      time.Duration
}

// DelayAfter returns how long to wait after finishing the given batch.
// batchIndex is zero-based.
func (p Pacing) DelayAfter(batchIndex, totalBatches int) time.Duration {
	if batchIndex >= totalBatches-1 {
		return 0
	}
	delay := p.InterBatchDelay
	if p.EveryNBatches > 0 && (batchIndex+1)%p.EveryNBatches == 0 {
		delay += p.ExtraDelay
	}
	return delay
}
