package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"domainworth-backend/internal/shared/storage/object"
	"domainworth-backend/internal/shared/storage/object/local"
)

const testSecret = "test-secret"

func setupArtifactRouter(t *testing.T) (*gin.Engine, object.ObjectStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := local.New(t.TempDir(), testSecret, "http://localhost:8080")
	router := gin.New()
	api := router.Group("/api/v1")
	NewHandler(store, testSecret).RegisterRoutes(api)
	return router, store
}

func saveArtifact(t *testing.T, store object.ObjectStore, key, content string) {
	t.Helper()
	if _, err := store.SaveWithKey(context.Background(), key, "text/csv", bytes.NewReader([]byte(content))); err != nil {
		t.Fatalf("save artifact: %v", err)
	}
}

func TestDownloadWithValidToken(t *testing.T) {
	router, store := setupArtifactRouter(t)

	key := "batch-results/userhash/123.csv"
	saveArtifact(t, store, key, "Domain,Marketplace_Value\n\"good.com\",\"1200\"")

	exp := time.Now().Add(time.Hour).Unix()
	token := object.SignDownloadToken(testSecret, key, exp)

	url := fmt.Sprintf("/api/v1/artifacts/%s?token=%s&exp=%d", key, token, exp)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "123.csv") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !strings.Contains(resp.Body.String(), "good.com") {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestDownloadRejectsBadToken(t *testing.T) {
	router, store := setupArtifactRouter(t)

	key := "batch-results/userhash/123.csv"
	saveArtifact(t, store, key, "data")

	exp := time.Now().Add(time.Hour).Unix()
	url := fmt.Sprintf("/api/v1/artifacts/%s?token=%s&exp=%d", key, "forged", exp)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestDownloadRejectsExpiredToken(t *testing.T) {
	router, store := setupArtifactRouter(t)

	key := "batch-results/userhash/123.csv"
	saveArtifact(t, store, key, "data")

	exp := time.Now().Add(-time.Minute).Unix()
	token := object.SignDownloadToken(testSecret, key, exp)
	url := fmt.Sprintf("/api/v1/artifacts/%s?token=%s&exp=%d", key, token, exp)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "token_expired") {
		t.Fatalf("expected token_expired code, got %q", resp.Body.String())
	}
}

func TestDownloadMissingObject(t *testing.T) {
	router, _ := setupArtifactRouter(t)

	key := "batch-results/userhash/missing.csv"
	exp := time.Now().Add(time.Hour).Unix()
	token := object.SignDownloadToken(testSecret, key, exp)
	url := fmt.Sprintf("/api/v1/artifacts/%s?token=%s&exp=%d", key, token, exp)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestLocalStoreURLRoundTrip(t *testing.T) {
	router, store := setupArtifactRouter(t)

	key := "batch-results/userhash/456.csv"
	saveArtifact(t, store, key, "round-trip")

	url, err := store.DownloadURL(context.Background(), key, time.Hour)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	rel := strings.TrimPrefix(url, "http://localhost:8080")

	req := httptest.NewRequest(http.MethodGet, rel, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != "round-trip" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}
