package valuation

import (
	"errors"
	"fmt"
)

// ErrPollBudgetExhausted is returned when a prediction does not reach a
// terminal status within the poller's attempt budget.
var ErrPollBudgetExhausted = errors.New("prediction polling budget exhausted")

// StartError is a non-2xx response to a prediction start request.
type StartError struct {
	StatusCode int
	Body       string
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start prediction: status %d: %s", e.StatusCode, e.Body)
}

// PollError is a non-2xx response while polling a prediction.
type PollError struct {
	StatusCode int
	Body       string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll prediction: status %d: %s", e.StatusCode, e.Body)
}

// RemoteError means the remote run itself failed or was canceled.
type RemoteError struct {
	PredictionID string
	Status       string
	Detail       string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("prediction %s ended with status %s", e.PredictionID, e.Status)
	}
	return fmt.Sprintf("prediction %s ended with status %s: %s", e.PredictionID, e.Status, e.Detail)
}

// MalformedOutputError means the run succeeded but returned no usable
// valuations.
type MalformedOutputError struct {
	PredictionID string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("prediction %s succeeded without usable valuations", e.PredictionID)
}
