package batch

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/shared/server/middleware"
	"domainworth-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the batch service.
type Handler struct {
	Svc         *Service
	pollLimiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:         svc,
		pollLimiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches batch job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/batch-jobs", h.submitJob)
	rg.GET("/batch-jobs", h.listJobs)
	rg.GET("/batch-jobs/:id", h.getJob)
	rg.POST("/batch-jobs/:id/cancel", h.cancelJob)
}

func (h *Handler) submitJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(c)
	resp, err := h.Svc.Submit(c.Request.Context(), userID, requestID, req)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", vErr.Reason, []map[string]string{
				{"field": vErr.Field, "issue": vErr.Reason},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start batch job", nil)
		}
		return
	}

	respond.Accepted(c, resp)
}

func (h *Handler) getJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}

	if !h.pollLimiter.Allow(userID, jobID) {
		c.Header("Retry-After", strconv.Itoa(h.pollLimiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	job, err := h.Svc.Get(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}

	respond.OK(c, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	jobs, err := h.Svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}

	respond.OK(c, gin.H{"jobs": jobs})
}

func (h *Handler) cancelJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}

	job, err := h.Svc.Cancel(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		case errors.Is(err, ErrJobFinished):
			respond.Error(c, http.StatusConflict, "job_finished", "job already finished", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel job", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"id":              job.ID,
		"status":          job.Status,
		"cancelRequested": job.CancelRequested,
	})
}
