package artifacts

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/shared/server/respond"
	"domainworth-backend/internal/shared/storage/object"
	"domainworth-backend/internal/shared/util"
)

// Handler serves stored result files. The signed token in the URL is the only
// credential; no login is required to download.
type Handler struct {
	Store  object.ObjectStore
	Secret string
}

// NewHandler constructs a Handler.
func NewHandler(store object.ObjectStore, secret string) *Handler {
	return &Handler{Store: store, Secret: secret}
}

// RegisterRoutes attaches the artifact download route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artifacts/*key", h.download)
}

func (h *Handler) download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "artifact key is required", nil)
		return
	}

	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing download token", nil)
		return
	}
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid download token", nil)
		return
	}

	if err := object.VerifyDownloadToken(h.Secret, key, token, exp, time.Now()); err != nil {
		switch {
		case errors.Is(err, object.ErrTokenExpired):
			respond.Error(c, http.StatusUnauthorized, "token_expired", "download link expired", nil)
		default:
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid download token", nil)
		}
		return
	}

	rc, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
		return
	}
	defer rc.Close()

	filename, err := util.SanitizeFileName(path.Base(key))
	if err != nil {
		filename = "download"
	}
	c.Header("Content-Type", contentTypeFor(key))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
