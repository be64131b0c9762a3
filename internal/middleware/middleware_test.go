package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"phonemarket-bot/pkg/uid"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{APIKeys: []string{" secret ", ""}})(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"no key", "/api/v1/admin/stats", nil, http.StatusUnauthorized},
		{"wrong key", "/api/v1/admin/stats", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"api key header", "/api/v1/admin/stats", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", "/api/v1/admin/stats", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"health is public", "/api/v1/health", nil, http.StatusOK},
		{"ready is public", "/api/v1/ready", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareWithoutKeysRejects(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{})(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !uid.IsValid(seen) || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("expected generated id, got %q", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id := uid.New()
	req.Header.Set("X-Request-ID", id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Errorf("expected incoming id %s to be kept, got %s", id, seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
