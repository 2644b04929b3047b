package batch

import (
	"testing"
	"time"
)

func TestPacingDelayAfter(t *testing.T) {
	p := Pacing{
		InterBatchDelay: 10 * time.Second,
		EveryNBatches:   6,
		ExtraDelay:      60 * time.Second,
	}

	cases := []struct {
		name         string
		batchIndex   int
		totalBatches int
		want         time.Duration
	}{
		{"middle batch", 0, 10, 10 * time.Second},
		{"sixth batch gets extra pause", 5, 10, 70 * time.Second},
		{"twelfth batch gets extra pause", 11, 20, 70 * time.Second},
		{"final batch no delay", 9, 10, 0},
		{"final batch is sixth", 5, 6, 0},
		{"single batch", 0, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.DelayAfter(tc.batchIndex, tc.totalBatches); got != tc.want {
				t.Fatalf("DelayAfter(%d, %d) = %v, want %v", tc.batchIndex, tc.totalBatches, got, tc.want)
			}
		})
	}
}

func TestPacingZeroExtraCadence(t *testing.T) {
	p := Pacing{InterBatchDelay: time.Second}
	if got := p.DelayAfter(5, 10); got != time.Second {
		t.Fatalf("DelayAfter = %v, want 1s", got)
	}
}
