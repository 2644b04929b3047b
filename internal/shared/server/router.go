package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/appraisal"
	"domainworth-backend/internal/artifacts"
	"domainworth-backend/internal/batch"
	"domainworth-backend/internal/predictions"
	"domainworth-backend/internal/shared/config"
	"domainworth-backend/internal/shared/metrics"
	"domainworth-backend/internal/shared/server/middleware"
	"domainworth-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config             config.Config
	BatchHandler       *batch.Handler
	AppraisalHandler   *appraisal.Handler
	PredictionsHandler *predictions.Handler
	ArtifactsHandler   *artifacts.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				// submissions fan out thousands of remote calls, keep them rare
				"batch_submit": {Rate: 0.2, Burst: 3},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/batch-jobs" {
					return "batch_submit"
				}
				return ""
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.BatchHandler != nil {
		deps.BatchHandler.RegisterRoutes(api)
	}
	if deps.AppraisalHandler != nil {
		deps.AppraisalHandler.RegisterRoutes(api)
	}
	if deps.PredictionsHandler != nil {
		deps.PredictionsHandler.RegisterRoutes(api)
	}
	if deps.ArtifactsHandler != nil {
		deps.ArtifactsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
