package appraisal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches single-domain appraisals from the Atom marketplace API. The
// caller supplies their own Atom credentials per request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an Atom appraisal client.
func NewClient(baseURL string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("atom base url is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Result carries the upstream response through unmodified.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Appraise fetches a single-domain appraisal.
func (c *Client) Appraise(ctx context.Context, domain, apiToken, userID string) (*Result, error) {
	q := url.Values{}
	q.Set("api_token", apiToken)
	q.Set("user_id", userID)
	q.Set("domain_name", domain)

	endpoint := c.baseURL + "/api/marketplace/domain-appraisal?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
