package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"domainworth-backend/internal/domains"
	"domainworth-backend/internal/shared/metrics"
	"domainworth-backend/internal/shared/storage/object"
	"domainworth-backend/internal/shared/telemetry"
	"domainworth-backend/internal/shared/util"
	"domainworth-backend/internal/valuation"
)

// Valuer runs one batch of domains through the remote valuation API.
type Valuer interface {
	Run(ctx context.Context, domains []string, apiToken string) ([]valuation.Valuation, error)
}

// Runner executes a batch job from its persisted input to a terminal status.
// Jobs dispatched in-process and jobs dispatched through the queue both land
// here.
type Runner struct {
	Repo      Repo
	Valuer    Valuer
	Store     object.ObjectStore
	Pacing    Pacing
	BatchSize int
	URLTTL    time.Duration
}

// jobInput is the submit payload persisted alongside the job so the worker
// can pick it up independently of the API process.
type jobInput struct {
	Domains      []string          `json:"domains"`
	Rows         []json.RawMessage `json:"rows"`
	Headers      []string          `json:"headers"`
	DomainColumn string            `json:"domainColumn"`
	MinValue     float64           `json:"minValue"`
	APIKey       string            `json:"apiKey"`
}

func inputKey(jobID string) string {
	return "batch-inputs/" + jobID + ".json"
}

func resultKey(userID string, now time.Time) string {
	return fmt.Sprintf("batch-results/%s/%d.csv", util.HashUserKey(userID), now.UnixMilli())
}

// Run drives one job to completion. Per-batch failures are recorded and the
// run continues; anything that prevents producing a result fails the job.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	started := time.Now()

	job, err := r.Repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status != StatusProcessing {
		telemetry.Info("batch.run.skipped", map[string]any{"job_id": jobID, "status": job.Status})
		return nil
	}

	input, err := r.loadInput(ctx, jobID)
	if err != nil {
		return r.fail(ctx, job, fmt.Errorf("load job input: %w", err))
	}

	batches := domains.Partition(input.Domains, r.BatchSize)
	job.TotalBatches = len(batches)

	results := make(map[string]valuation.Valuation)
	processed := 0

	for i, batch := range batches {
		canceled, err := r.cancelRequested(ctx, job.ID)
		if err != nil {
			return r.fail(ctx, job, err)
		}
		if canceled {
			return r.cancel(ctx, job)
		}

		vals, err := r.Valuer.Run(ctx, batch, input.APIKey)
		processed += len(batch)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx, job, ctx.Err())
			}
			metrics.IncBatchesFailed()
			telemetry.Error("batch.batch_failed", map[string]any{
				"job_id": job.ID,
				"batch":  i + 1,
				"error":  util.SanitizeError(err),
			})
			job.BatchErrors = append(job.BatchErrors, BatchError{
				Batch:     i + 1,
				Message:   util.SanitizeError(err),
				Timestamp: time.Now().UTC(),
			})
		} else {
			metrics.IncBatchesProcessed()
			for _, v := range vals {
				if v.Marketplace >= input.MinValue {
					results[strings.ToLower(v.Domain)] = v
				}
			}
		}

		job.CurrentBatch = i + 1
		job.ProcessedDomains = processed
		job.QualifyingDomains = len(results)
		job.Progress = progressPercent(i+1, len(batches))
		if err := r.Repo.Update(ctx, job); err != nil {
			return r.fail(ctx, job, fmt.Errorf("checkpoint job: %w", err))
		}

		if delay := r.Pacing.DelayAfter(i, len(batches)); delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return r.fail(ctx, job, err)
			}
		}
	}

	canceled, err := r.cancelRequested(ctx, job.ID)
	if err != nil {
		return r.fail(ctx, job, err)
	}
	if canceled {
		return r.cancel(ctx, job)
	}

	rows := DecodeRows(input.Rows)
	csvBytes, written, skipped := Reconcile(rows, input.Headers, input.DomainColumn, results)
	job.SkippedRows = skipped

	key := resultKey(job.UserID, time.Now())
	if _, err := r.Store.SaveWithKey(ctx, key, "text/csv", bytes.NewReader(csvBytes)); err != nil {
		return r.fail(ctx, job, fmt.Errorf("save result csv: %w", err))
	}
	url, err := r.Store.DownloadURL(ctx, key, r.URLTTL)
	if err != nil {
		return r.fail(ctx, job, fmt.Errorf("mint download url: %w", err))
	}

	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.Progress = 100
	job.DownloadURL = url
	job.CompletedAt = &now
	if err := r.Repo.Update(ctx, job); err != nil {
		return fmt.Errorf("finalize job %s: %w", job.ID, err)
	}

	metrics.IncBatchJobsCompleted()
	metrics.ObserveBatchJobDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("batch.completed", map[string]any{
		"job_id":       job.ID,
		"qualifying":   len(results),
		"rows_written": written,
		"rows_skipped": skipped,
		"batch_errors": len(job.BatchErrors),
	})
	return nil
}

// SaveInput persists the submit payload for later pickup by the runner.
func (r *Runner) SaveInput(ctx context.Context, jobID string, filtered []string, req SubmitRequest, headers []string) error {
	payload, err := json.Marshal(jobInput{
		Domains:      filtered,
		Rows:         req.CSVData,
		Headers:      headers,
		DomainColumn: req.ColumnMappings.DomainColumn,
		MinValue:     req.MinMarketplaceValue,
		APIKey:       req.APIKey,
	})
	if err != nil {
		return err
	}
	_, err = r.Store.SaveWithKey(ctx, inputKey(jobID), "application/json", bytes.NewReader(payload))
	return err
}

func (r *Runner) loadInput(ctx context.Context, jobID string) (jobInput, error) {
	rc, err := r.Store.Open(ctx, inputKey(jobID))
	if err != nil {
		return jobInput{}, err
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return jobInput{}, err
	}
	var input jobInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return jobInput{}, err
	}
	return input, nil
}

func (r *Runner) cancelRequested(ctx context.Context, jobID string) (bool, error) {
	job, err := r.Repo.GetByID(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("refresh job: %w", err)
	}
	return job.CancelRequested, nil
}

func (r *Runner) cancel(ctx context.Context, job Job) error {
	now := time.Now().UTC()
	job.Status = StatusCanceled
	job.CompletedAt = &now
	if err := r.Repo.Update(ctx, job); err != nil {
		return fmt.Errorf("mark job canceled: %w", err)
	}
	metrics.IncBatchJobsCanceled()
	telemetry.Info("batch.canceled", map[string]any{"job_id": job.ID})
	return nil
}

func (r *Runner) fail(ctx context.Context, job Job, cause error) error {
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Errors = append(job.Errors, JobError{
		Message:   util.SanitizeError(cause),
		Timestamp: now,
	})
	if err := r.Repo.Update(ctx, job); err != nil {
		telemetry.Error("batch.fail_update", map[string]any{"job_id": job.ID, "error": util.SanitizeError(err)})
	}
	metrics.IncBatchJobsFailed()
	telemetry.Error("batch.failed", map[string]any{"job_id": job.ID, "error": util.SanitizeError(cause)})
	return cause
}

// progressPercent rounds to the nearest whole percent, so 2 of 3 batches
// reports 67 rather than 66.
func progressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
