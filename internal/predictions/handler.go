package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/shared/server/respond"
	"domainworth-backend/internal/shared/telemetry"
	"domainworth-backend/internal/shared/util"
)

// Handler proxies raw prediction calls to the Replicate API so browser
// clients can use their own token, falling back to the server's.
type Handler struct {
	baseURL      string
	defaultToken string
	httpClient   *http.Client
}

// NewHandler constructs a predictions proxy.
func NewHandler(baseURL, defaultToken string) (*Handler, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("replicate base url is required")
	}
	return &Handler{
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultToken: defaultToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// RegisterRoutes attaches prediction proxy routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/predictions", h.createPrediction)
	rg.GET("/predictions/:id", h.getPrediction)
}

type createRequest struct {
	Version string          `json:"version"`
	Input   json.RawMessage `json:"input"`
}

func (h *Handler) createPrediction(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Version == "" || len(req.Input) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing 'input' or 'version' in body", nil)
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to forward prediction", nil)
		return
	}
	h.forward(c, http.MethodPost, "/v1/predictions", payload)
}

func (h *Handler) getPrediction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "prediction id is required", nil)
		return
	}
	h.forward(c, http.MethodGet, "/v1/predictions/"+id, nil)
}

func (h *Handler) forward(c *gin.Context, method, path string, payload []byte) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 55*time.Second)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to forward prediction", nil)
		return
	}
	req.Header.Set("Authorization", "Token "+h.callerToken(c))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		telemetry.Error("predictions.upstream_error", map[string]any{"error": util.SanitizeError(err)})
		respond.Error(c, http.StatusBadGateway, "upstream_error", "prediction request failed", nil)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "upstream_error", "prediction request failed", nil)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, respBody)
}

// callerToken prefers the caller's bearer token over the server default.
func (h *Handler) callerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token
		}
	}
	return h.defaultToken
}
