package appraisal

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/shared/server/respond"
	"domainworth-backend/internal/shared/telemetry"
	"domainworth-backend/internal/shared/util"
)

// Handler proxies single-domain appraisal lookups so Atom credentials never
// hit the browser's CORS restrictions.
type Handler struct {
	Client *Client
}

// NewHandler constructs a Handler.
func NewHandler(client *Client) *Handler {
	return &Handler{Client: client}
}

// RegisterRoutes attaches appraisal routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/atom-appraisal", h.appraise)
}

func (h *Handler) appraise(c *gin.Context) {
	domain := c.Query("domain")
	if domain == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing 'domain' query parameter", nil)
		return
	}
	apiToken := c.Query("api_token")
	userID := c.Query("user_id")
	if apiToken == "" || userID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing 'api_token' or 'user_id' parameter", nil)
		return
	}

	result, err := h.Client.Appraise(c.Request.Context(), domain, apiToken, userID)
	if err != nil {
		telemetry.Error("appraisal.upstream_error", map[string]any{"error": util.SanitizeError(err)})
		respond.Error(c, http.StatusBadGateway, "upstream_error", "appraisal request failed", nil)
		return
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(result.StatusCode, contentType, result.Body)
}
