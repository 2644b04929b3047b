package batch

import "context"

// Repo persists batch jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Job, error)
	Update(ctx context.Context, job Job) error
	RequestCancel(ctx context.Context, jobID, userID string) (Job, error)
}
