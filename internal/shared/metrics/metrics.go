package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	batchJobsStartedTotal   atomic.Uint64
	batchJobsCompletedTotal atomic.Uint64
	batchJobsFailedTotal    atomic.Uint64
	batchJobsCanceledTotal  atomic.Uint64

	batchesProcessedTotal atomic.Uint64
	batchesFailedTotal    atomic.Uint64

	workerMessagesReceivedTotal  atomic.Uint64
	workerMessagesCompletedTotal atomic.Uint64
	workerMessagesFailedTotal    atomic.Uint64
	workerMessagesDeletedTotal   atomic.Uint64

	// Long jobs: a 6000-domain submission spans minutes because of inter-batch pacing.
	batchJobDuration = newHistogram([]float64{1000, 5000, 15000, 60000, 180000, 600000, 1800000, 3600000})
)

// IncBatchJobsStarted increments the started-jobs counter.
func IncBatchJobsStarted() {
	batchJobsStartedTotal.Add(1)
}

// IncBatchJobsCompleted increments the completed-jobs counter.
func IncBatchJobsCompleted() {
	batchJobsCompletedTotal.Add(1)
}

// IncBatchJobsFailed increments the failed-jobs counter.
func IncBatchJobsFailed() {
	batchJobsFailedTotal.Add(1)
}

// IncBatchJobsCanceled increments the canceled-jobs counter.
func IncBatchJobsCanceled() {
	batchJobsCanceledTotal.Add(1)
}

// IncBatchesProcessed increments the per-batch success counter.
func IncBatchesProcessed() {
	batchesProcessedTotal.Add(1)
}

// IncBatchesFailed increments the per-batch failure counter.
func IncBatchesFailed() {
	batchesFailedTotal.Add(1)
}

// IncWorkerMessagesReceived increments the worker received-messages counter.
func IncWorkerMessagesReceived() {
	workerMessagesReceivedTotal.Add(1)
}

// IncWorkerMessagesCompleted increments the worker completed-messages counter.
func IncWorkerMessagesCompleted() {
	workerMessagesCompletedTotal.Add(1)
}

// IncWorkerMessagesFailed increments the worker failed-messages counter.
func IncWorkerMessagesFailed() {
	workerMessagesFailedTotal.Add(1)
}

// IncWorkerMessagesDeletedUnrecoverable increments the counter for malformed
// messages deleted without processing.
func IncWorkerMessagesDeletedUnrecoverable() {
	workerMessagesDeletedTotal.Add(1)
}

// ObserveBatchJobDurationMs records a whole-job duration in milliseconds.
func ObserveBatchJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	batchJobDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "batch_jobs_started_total", "Total batch analysis jobs started", batchJobsStartedTotal.Load())
	writeCounter(&buf, "batch_jobs_completed_total", "Total batch analysis jobs completed", batchJobsCompletedTotal.Load())
	writeCounter(&buf, "batch_jobs_failed_total", "Total batch analysis jobs failed", batchJobsFailedTotal.Load())
	writeCounter(&buf, "batch_jobs_canceled_total", "Total batch analysis jobs canceled", batchJobsCanceledTotal.Load())
	writeCounter(&buf, "batches_processed_total", "Total valuation batches processed", batchesProcessedTotal.Load())
	writeCounter(&buf, "batches_failed_total", "Total valuation batches failed", batchesFailedTotal.Load())
	writeCounter(&buf, "worker_messages_received_total", "Total queue messages received by the worker", workerMessagesReceivedTotal.Load())
	writeCounter(&buf, "worker_messages_completed_total", "Total queue messages processed successfully", workerMessagesCompletedTotal.Load())
	writeCounter(&buf, "worker_messages_failed_total", "Total queue messages that failed processing", workerMessagesFailedTotal.Load())
	writeCounter(&buf, "worker_messages_deleted_unrecoverable_total", "Total malformed queue messages deleted", workerMessagesDeletedTotal.Load())
	writeHistogram(&buf, "batch_job_duration_ms", "Batch job duration in milliseconds", batchJobDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
