package queue

import (
	"context"
	"time"
)

// Dispatcher adapts a queue client to the batch service's dispatch hook.
type Dispatcher struct {
	Client Client
}

// Enqueue sends a job reference for background execution.
func (d *Dispatcher) Enqueue(ctx context.Context, jobID, requestID string) error {
	return d.Client.Send(ctx, Message{
		JobID:      jobID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}
