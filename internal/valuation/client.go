package valuation

import "context"

// Valuation holds the three price estimates returned for a single domain.
type Valuation struct {
	Domain      string  `json:"domain"`
	Marketplace float64 `json:"marketplace"`
	Brokerage   float64 `json:"brokerage"`
	Auction     float64 `json:"auction"`
}

// Prediction is one remote valuation run.
type Prediction struct {
	ID     string
	Status string
	Output []Valuation
	Error  string
}

// Prediction statuses reported by the remote API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Client starts and polls remote valuation predictions. An empty apiToken
// falls back to the server's default credentials.
type Client interface {
	Start(ctx context.Context, domains []string, apiToken string) (*Prediction, error)
	Get(ctx context.Context, predictionID, apiToken string) (*Prediction, error)
}

// Terminal reports whether a prediction has reached a final status.
func Terminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
