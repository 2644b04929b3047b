package valuation

import (
	"context"
	"time"
)

// Poller drives a prediction from start to a terminal status. MaxAttempts of
// zero polls until the context is canceled.
type Poller struct {
	Client      Client
	Interval    time.Duration
	MaxAttempts int
}

// NewPoller creates a poller with the given cadence and attempt budget.
func NewPoller(client Client, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	return &Poller{
		Client:      client,
		Interval:    interval,
		MaxAttempts: maxAttempts,
	}
}

// Run starts a prediction for the domains and polls until it settles. A
// succeeded run returns its valuations; anything else returns an error that
// preserves the remote detail.
func (p *Poller) Run(ctx context.Context, domains []string, apiToken string) ([]Valuation, error) {
	pred, err := p.Client.Start(ctx, domains, apiToken)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if Terminal(pred.Status) {
			return settle(pred)
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return nil, ErrPollBudgetExhausted
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return nil, err
		}
		pred, err = p.Client.Get(ctx, pred.ID, apiToken)
		if err != nil {
			return nil, err
		}
	}
}

func settle(pred *Prediction) ([]Valuation, error) {
	switch pred.Status {
	case StatusSucceeded:
		if len(pred.Output) == 0 {
			return nil, &MalformedOutputError{PredictionID: pred.ID}
		}
		return pred.Output, nil
	default:
		return nil, &RemoteError{
			PredictionID: pred.ID,
			Status:       pred.Status,
			Detail:       pred.Error,
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
