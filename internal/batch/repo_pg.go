package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `
id, user_id, status, min_value, total_domains, filtered_domains, processed_domains,
qualifying_domains, skipped_rows, current_batch, total_batches, progress,
cancel_requested, download_url, batch_errors, errors, created_at, updated_at, completed_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO batch_jobs (
	id, user_id, status, min_value, total_domains, filtered_domains, processed_domains,
	qualifying_domains, skipped_rows, current_batch, total_batches, progress,
	cancel_requested, download_url, batch_errors, errors, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	batchErrors, err := marshalJSONB(job.BatchErrors)
	if err != nil {
		return err
	}
	jobErrors, err := marshalJSONB(job.Errors)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.Status,
		job.MinValue,
		job.TotalDomains,
		job.FilteredDomains,
		job.ProcessedDomains,
		job.QualifyingDomains,
		job.SkippedRows,
		job.CurrentBatch,
		job.TotalBatches,
		job.Progress,
		job.CancelRequested,
		nullString(job.DownloadURL),
		batchErrors,
		jobErrors,
		job.CreatedAt,
		job.CreatedAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM batch_jobs
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// ListByUser returns a user's jobs, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM batch_jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Update writes a job's mutable progress fields. The cancel_requested flag is
// only ever raised here, never cleared, so a concurrent cancel survives a
// checkpoint write from the runner.
func (r *PGRepo) Update(ctx context.Context, job Job) error {
	const query = `
UPDATE batch_jobs
SET status = $2,
    processed_domains = $3,
    qualifying_domains = $4,
    skipped_rows = $5,
    current_batch = $6,
    progress = $7,
    cancel_requested = cancel_requested OR $8,
    download_url = $9,
    batch_errors = $10,
    errors = $11,
    updated_at = $12,
    completed_at = $13
WHERE id = $1`
	batchErrors, err := marshalJSONB(job.BatchErrors)
	if err != nil {
		return err
	}
	jobErrors, err := marshalJSONB(job.Errors)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.Status,
		job.ProcessedDomains,
		job.QualifyingDomains,
		job.SkippedRows,
		job.CurrentBatch,
		job.Progress,
		job.CancelRequested,
		nullString(job.DownloadURL),
		batchErrors,
		jobErrors,
		time.Now().UTC(),
		nullTime(job.CompletedAt),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestCancel raises the cancel flag on a running job owned by the user.
func (r *PGRepo) RequestCancel(ctx context.Context, jobID, userID string) (Job, error) {
	const query = `
UPDATE batch_jobs
SET cancel_requested = TRUE,
    updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = $3`
	res, err := r.DB.ExecContext(ctx, query, jobID, userID, StatusProcessing)
	if err != nil {
		return Job{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Job{}, err
	}
	if affected == 0 {
		job, err := r.GetByID(ctx, jobID)
		if err != nil {
			return Job{}, ErrNotFound
		}
		if job.UserID != userID {
			return Job{}, ErrNotFound
		}
		return Job{}, ErrJobFinished
	}
	return r.GetByID(ctx, jobID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var downloadURL sql.NullString
	var batchErrors, jobErrors []byte
	var completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Status,
		&job.MinValue,
		&job.TotalDomains,
		&job.FilteredDomains,
		&job.ProcessedDomains,
		&job.QualifyingDomains,
		&job.SkippedRows,
		&job.CurrentBatch,
		&job.TotalBatches,
		&job.Progress,
		&job.CancelRequested,
		&downloadURL,
		&batchErrors,
		&jobErrors,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return Job{}, err
	}
	if downloadURL.Valid {
		job.DownloadURL = downloadURL.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if len(batchErrors) > 0 {
		if err := json.Unmarshal(batchErrors, &job.BatchErrors); err != nil {
			return Job{}, err
		}
	}
	if len(jobErrors) > 0 {
		if err := json.Unmarshal(jobErrors, &job.Errors); err != nil {
			return Job{}, err
		}
	}
	return job, nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(payload) == "null" {
		return []byte("[]"), nil
	}
	return payload, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
