package demo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fydp-portal/internal/logger"
)

// detailResponse - формат ошибок /auth и /chat ({"detail": "..."}).
type detailResponse struct {
	Detail string `json:"detail"`
}

// envelopeResponse - формат ответов /api/*.
type envelopeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detailResponse{Detail: msg})
}

func writeOK(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, envelopeResponse{Success: true, Message: msg, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelopeResponse{Success: false, Message: msg})
}

// sleep имитирует сетевую задержку; false, если клиент ушёл раньше.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
