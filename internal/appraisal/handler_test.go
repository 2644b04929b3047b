package appraisal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupAppraisalRouter(t *testing.T, upstream http.HandlerFunc) (*gin.Engine, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	router := gin.New()
	api := router.Group("/api/v1")
	NewHandler(client).RegisterRoutes(api)
	return router, srv
}

func TestAppraiseForwardsQueryParams(t *testing.T) {
	var gotQuery map[string]string
	router, _ := setupAppraisalRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/marketplace/domain-appraisal" {
			t.Fatalf("unexpected upstream path %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"api_token":   r.URL.Query().Get("api_token"),
			"user_id":     r.URL.Query().Get("user_id"),
			"domain_name": r.URL.Query().Get("domain_name"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"appraisal": 1500}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/atom-appraisal?domain=good.com&api_token=tok&user_id=u1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "1500") {
		t.Fatalf("body not forwarded: %q", resp.Body.String())
	}
	if gotQuery["api_token"] != "tok" || gotQuery["user_id"] != "u1" || gotQuery["domain_name"] != "good.com" {
		t.Fatalf("unexpected upstream query %v", gotQuery)
	}
}

func TestAppraiseMissingParams(t *testing.T) {
	router, _ := setupAppraisalRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	})

	cases := []string{
		"/api/v1/atom-appraisal",
		"/api/v1/atom-appraisal?domain=good.com",
		"/api/v1/atom-appraisal?domain=good.com&api_token=tok",
	}
	for _, path := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.Code)
		}
	}
}

func TestAppraisePassesUpstreamStatus(t *testing.T) {
	router, _ := setupAppraisalRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"bad token"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/atom-appraisal?domain=good.com&api_token=bad&user_id=u1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "bad token") {
		t.Fatalf("upstream body not forwarded: %q", resp.Body.String())
	}
}
