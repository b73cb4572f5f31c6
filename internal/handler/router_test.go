package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/middleware"
	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/security"
)

func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	}
	if deps.Tags == nil {
		deps.Tags = &mockTagRepo{}
	}
	if deps.Users == nil {
		deps.Users = &mockUserRepo{}
	}
	if deps.WorkItems == nil {
		deps.WorkItems = &mockWorkItemRepo{}
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = security.NewDescriptionSanitizer()
	}
	return NewRouter(deps)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, newJSONRequest(method, target, body))
	return w
}

func TestRouter_RoutesToHandlers(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/tags", `{"name":"Custom"}`, http.StatusCreated},
		{http.MethodGet, "/api/tags", "", http.StatusOK},
		{http.MethodGet, "/api/tags/1", "", http.StatusNotFound},
		{http.MethodPut, "/api/tags/1", `{"name":"Fancy"}`, http.StatusNoContent},
		{http.MethodDelete, "/api/tags/1?force=true", "", http.StatusNoContent},
		{http.MethodPost, "/api/users", `{"name":"jim","email":"jim@example.com"}`, http.StatusCreated},
		{http.MethodGet, "/api/users", "", http.StatusOK},
		{http.MethodDelete, "/api/users/1", "", http.StatusNoContent},
		{http.MethodPost, "/api/workitems", `{"title":"Make food"}`, http.StatusCreated},
		{http.MethodGet, "/api/workitems?state=new", "", http.StatusOK},
		{http.MethodGet, "/api/workitems/removed", "", http.StatusOK},
		{http.MethodGet, "/api/workitems/1", "", http.StatusNotFound},
		{http.MethodDelete, "/api/workitems/1", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if w := serve(router, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	if w := serve(router, http.MethodGet, "/api/projects", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := serve(router, http.MethodPatch, "/api/tags/1", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("unknown method status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestRouter_SetsRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := serve(router, http.MethodGet, "/api/tags", "")
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected X-Request-ID header on response")
	}
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"reachable", nil, http.StatusOK},
		{"unreachable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &RouterDeps{HealthChecker: mockHealthChecker{err: tt.err}})
			if w := serve(router, http.MethodGet, "/health", ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// レート制限は/api配下のみに適用され、/healthは制限されない
func TestRouter_RateLimitAppliesToAPIOnly(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.001, Burst: 1, CleanupInterval: time.Minute})
	t.Cleanup(rl.Stop)

	router := newTestRouter(t, &RouterDeps{
		RateLimiter:   rl,
		HealthChecker: mockHealthChecker{},
	})

	if w := serve(router, http.MethodGet, "/api/tags", ""); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := serve(router, http.MethodGet, "/api/tags", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	for i := 0; i < 3; i++ {
		if w := serve(router, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
		}
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	router := newTestRouter(t, &RouterDeps{
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	})

	serve(router, http.MethodPost, "/api/tags", `{"name":"Custom"}`)

	w := serve(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, want := range []string{
		`workboard_repository_results_total{entity="tag",operation="create",result="created"} 1`,
		`workboard_http_requests_total{method="POST",status_code="201"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRouter_PanicIsRecovered(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{
		Users: &mockUserRepo{
			readFn: func(ctx context.Context) ([]model.UserDTO, error) {
				panic("unexpected")
			},
		},
	})

	if w := serve(router, http.MethodGet, "/api/users", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
