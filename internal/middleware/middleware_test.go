package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type mapResolver map[string][2]string

func (m mapResolver) ResolveToken(_ context.Context, token string) (string, string, bool) {
	v, ok := m[token]
	return v[0], v[1], ok
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetUserID(r.Context()) + "/" + GetRole(r.Context())))
}

func TestBearerAuth(t *testing.T) {
	h := BearerAuth(mapResolver{"tok": {"u1", "student"}})(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic tok", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer other", http.StatusUnauthorized, ""},
		{"ok", "Bearer tok", http.StatusOK, "u1/student"},
		{"lowercase scheme", "bearer tok", http.StatusOK, "u1/student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
			if tt.status == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"detail"`) {
				t.Errorf("401 body = %q, want detail field", rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := BearerAuth(mapResolver{"s": {"u1", "student"}, "a": {"u2", "advisor"}})(
		RequireRole("student")(http.HandlerFunc(echoUser)))

	for token, want := range map[string]int{"s": http.StatusOK, "a": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("token %s: status = %d, want %d", token, rec.Code, want)
		}
	}
}

func TestRecoverJSON(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, 0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:" + string(rune('1'+i)) + "000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", rec.Code)
	}
}

func TestRateLimitPerUser(t *testing.T) {
	inner := RateLimit(0, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h := BearerAuth(mapResolver{"tok": {"u1", "student"}})(inner)
	var last int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", last)
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("short"); got != "****" {
		t.Errorf("MaskToken(short) = %q", got)
	}
	if got := MaskToken("0123456789abcdef"); got != "0123***ef" {
		t.Errorf("MaskToken = %q", got)
	}
}
