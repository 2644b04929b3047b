package predictions

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupProxyRouter(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	handler, err := NewHandler(srv.URL, "server-default")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router
}

func TestCreatePredictionForwardsBodyAndDefaultToken(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	router := setupProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predictions" {
			t.Fatalf("unexpected upstream request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode upstream body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	})

	payload := `{"version":"model-v1","input":{"domains":"good.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAuth != "Token server-default" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
	if gotBody["version"] != "model-v1" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if !strings.Contains(resp.Body.String(), "pred-1") {
		t.Fatalf("upstream body not forwarded: %q", resp.Body.String())
	}
}

func TestCreatePredictionBearerOverridesDefault(t *testing.T) {
	var gotAuth string
	router := setupProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	payload := `{"version":"v","input":{"domains":"a.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer caller-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if gotAuth != "Token caller-token" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
}

func TestCreatePredictionValidation(t *testing.T) {
	router := setupProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", bytes.NewReader([]byte(`{"version":"v"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetPredictionForwardsStatus(t *testing.T) {
	router := setupProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/predictions/pred-7" {
			t.Fatalf("unexpected upstream path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"gone"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/predictions/pred-7", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "gone") {
		t.Fatalf("upstream body not forwarded: %q", resp.Body.String())
	}
}
