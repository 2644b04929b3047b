package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ReplicateClient implements Client against the Replicate predictions API.
type ReplicateClient struct {
	baseURL      string
	defaultToken string
	modelVersion string
	httpClient   *http.Client
}

// NewReplicateClient constructs a Replicate-backed valuation client.
func NewReplicateClient(baseURL, defaultToken, modelVersion string) (*ReplicateClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("replicate base url is required")
	}
	if strings.TrimSpace(modelVersion) == "" {
		return nil, fmt.Errorf("replicate model version is required")
	}
	return &ReplicateClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultToken: defaultToken,
		modelVersion: modelVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type startRequest struct {
	Version string     `json:"version"`
	Input   startInput `json:"input"`
}

type startInput struct {
	Domains string `json:"domains"`
}

type predictionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output *struct {
		Valuations []Valuation `json:"valuations"`
	} `json:"output,omitempty"`
	Error string `json:"error,omitempty"`
}

// Start submits a batch of domains for valuation. Domains are lowercased and
// comma-joined into a single input field.
func (c *ReplicateClient) Start(ctx context.Context, domains []string, apiToken string) (*Prediction, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("no domains to value")
	}

	lowered := make([]string, len(domains))
	for i, d := range domains {
		lowered[i] = strings.ToLower(strings.TrimSpace(d))
	}
	payload, err := json.Marshal(startRequest{
		Version: c.modelVersion,
		Input:   startInput{Domains: strings.Join(lowered, ",")},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("replicate start timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StartError{StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}
	return parsePrediction(body)
}

// Get fetches the current state of a prediction.
func (c *ReplicateClient) Get(ctx context.Context, predictionID, apiToken string) (*Prediction, error) {
	if strings.TrimSpace(predictionID) == "" {
		return nil, fmt.Errorf("prediction id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/predictions/"+predictionID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &PollError{StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}
	return parsePrediction(body)
}

func (c *ReplicateClient) setHeaders(req *http.Request, apiToken string) {
	token := strings.TrimSpace(apiToken)
	if token == "" {
		token = c.defaultToken
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "application/json")
}

func parsePrediction(body []byte) (*Prediction, error) {
	var parsed predictionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("replicate response parse: %w", err)
	}
	pred := &Prediction{
		ID:     parsed.ID,
		Status: parsed.Status,
		Error:  parsed.Error,
	}
	if parsed.Output != nil {
		pred.Output = parsed.Output.Valuations
	}
	return pred, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ Client = (*ReplicateClient)(nil)
