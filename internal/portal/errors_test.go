package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 404, `{"detail":"Session not found"}`, "Session not found"},
		{"detail list", 422, `{"detail":[{"loc":["query","message"],"msg":"field required"}]}`, "field required"},
		{"envelope message", 409, `{"success":false,"message":"Group is already finalized"}`, "Group is already finalized"},
		{"error field", 500, `{"error":"internal"}`, "internal"},
		{"plain text", 502, "bad gateway\n", "bad gateway"},
		{"empty body", 503, "", http.StatusText(503)},
		{"empty json", 400, `{}`, http.StatusText(400)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAPIError(tt.status, []byte(tt.body))
			if e.Status != tt.status {
				t.Errorf("Status = %d, want %d", e.Status, tt.status)
			}
			if e.Message != tt.want {
				t.Errorf("Message = %q, want %q", e.Message, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	apiErr := &APIError{Status: 400, Message: "Invalid gsuite_id or password"}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"api error", apiErr, "Invalid gsuite_id or password"},
		{"wrapped api error", fmt.Errorf("login: %w", apiErr), "Invalid gsuite_id or password"},
		{"canceled", fmt.Errorf("do: %w", context.Canceled), "Request was cancelled."},
		{"deadline", context.DeadlineExceeded, "Request timed out. Please try again."},
		{"transport", errors.New("dial tcp: connection refused"), "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err, "fallback"); got != tt.want {
				t.Errorf("Message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsStatus(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &APIError{Status: 403})
	if !IsStatus(err, 403) {
		t.Error("IsStatus(403) = false")
	}
	if IsStatus(err, 404) {
		t.Error("IsStatus(404) = true")
	}
	if IsStatus(errors.New("x"), 403) {
		t.Error("IsStatus on plain error = true")
	}
}
