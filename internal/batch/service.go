package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"domainworth-backend/internal/domains"
	"domainworth-backend/internal/shared/metrics"
	"domainworth-backend/internal/shared/telemetry"
	"domainworth-backend/internal/shared/util"
)

// Dispatcher hands a job off for background execution outside the API
// process.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID, requestID string) error
}

// Service contains business logic for batch valuation jobs.
type Service struct {
	Repo       Repo
	Runner     *Runner
	Dispatcher Dispatcher
}

// Submit validates a request, records the job, and kicks off background
// processing. It returns as soon as the job is accepted.
func (s *Service) Submit(ctx context.Context, userID, requestID string, req SubmitRequest) (SubmitResponse, error) {
	if userID == "" {
		return SubmitResponse{}, &ValidationError{Field: "userId", Reason: "required"}
	}
	if len(req.CSVData) == 0 {
		return SubmitResponse{}, &ValidationError{Field: "csvData", Reason: "required"}
	}
	if req.ColumnMappings.DomainColumn == "" {
		return SubmitResponse{}, &ValidationError{Field: "columnMappings.domainColumn", Reason: "required"}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return SubmitResponse{}, &ValidationError{Field: "apiKey", Reason: "required"}
	}
	if req.MinMarketplaceValue < 0 {
		return SubmitResponse{}, &ValidationError{Field: "minMarketplaceValue", Reason: "must not be negative"}
	}

	rows := DecodeRows(req.CSVData)
	headers := ResolveHeaders(rows, req.CSVHeaders, req.ColumnMappings.DomainColumn)
	extracted := ExtractDomains(rows, req.ColumnMappings.DomainColumn)
	filtered := domains.Filter(extracted)

	totalBatches := 0
	if s.Runner.BatchSize > 0 {
		totalBatches = (len(filtered) + s.Runner.BatchSize - 1) / s.Runner.BatchSize
	}

	job := Job{
		ID:              newJobID(userID),
		UserID:          userID,
		Status:          StatusProcessing,
		MinValue:        req.MinMarketplaceValue,
		TotalDomains:    len(req.CSVData),
		FilteredDomains: len(filtered),
		TotalBatches:    totalBatches,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return SubmitResponse{}, err
	}
	if err := s.Runner.SaveInput(ctx, job.ID, filtered, req, headers); err != nil {
		return SubmitResponse{}, err
	}

	metrics.IncBatchJobsStarted()
	telemetry.Info("batch.submitted", map[string]any{
		"job_id":           job.ID,
		"total_domains":    job.TotalDomains,
		"filtered_domains": job.FilteredDomains,
		"total_batches":    job.TotalBatches,
	})

	s.dispatch(ctx, job.ID, requestID)

	return SubmitResponse{
		Success:      true,
		JobID:        job.ID,
		TotalDomains: len(filtered),
	}, nil
}

// newJobID builds an id from the submission time and the submitting user,
// matching the shape of the stored batch records.
func newJobID(userID string) string {
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), userID)
}

func (s *Service) dispatch(ctx context.Context, jobID, requestID string) {
	if s.Dispatcher != nil {
		err := s.Dispatcher.Enqueue(ctx, jobID, requestID)
		if err == nil {
			return
		}
		telemetry.Warn("batch.enqueue_failed", map[string]any{
			"job_id": jobID,
			"error":  util.SanitizeError(err),
		})
	}
	go func() {
		if err := s.Runner.Run(context.Background(), jobID); err != nil {
			telemetry.Error("batch.run_error", map[string]any{
				"job_id": jobID,
				"error":  util.SanitizeError(err),
			})
		}
	}()
}

// Get returns a job owned by the user.
func (s *Service) Get(ctx context.Context, jobID, userID string) (Job, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.UserID != userID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns the user's jobs, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Job, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// Cancel requests cancellation of a running job. The runner honors the flag
// at its next checkpoint.
func (s *Service) Cancel(ctx context.Context, jobID, userID string) (Job, error) {
	job, err := s.Repo.RequestCancel(ctx, jobID, userID)
	if err != nil {
		return Job{}, err
	}
	telemetry.Info("batch.cancel_requested", map[string]any{"job_id": jobID})
	return job, nil
}
