package batch

import "errors"

var (
	// ErrNotFound means no job exists with the given ID for the caller.
	ErrNotFound = errors.New("job not found")
	// ErrJobFinished means a cancel arrived after the job settled.
	ErrJobFinished = errors.New("job already finished")
)

// ValidationError describes a rejected submit request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
