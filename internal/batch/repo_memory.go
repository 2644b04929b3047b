package batch

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in memory. Used in local development when no
// database is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{jobs: make(map[string]Job)}
}

func (r *MemoryRepo) Create(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, jobID string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0)
	for _, job := range r.jobs {
		if job.UserID == userID {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	// A cancel request may land while the runner holds a stale copy.
	if existing.CancelRequested {
		job.CancelRequested = true
	}
	job.UpdatedAt = time.Now().UTC()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryRepo) RequestCancel(_ context.Context, jobID, userID string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.UserID != userID {
		return Job{}, ErrNotFound
	}
	if job.Status != StatusProcessing {
		return Job{}, ErrJobFinished
	}
	job.CancelRequested = true
	job.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = job
	return cloneJob(job), nil
}

func cloneJob(job Job) Job {
	out := job
	if job.BatchErrors != nil {
		out.BatchErrors = append([]BatchError(nil), job.BatchErrors...)
	}
	if job.Errors != nil {
		out.Errors = append([]JobError(nil), job.Errors...)
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
