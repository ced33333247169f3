package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError - ошибка, о которой сообщил сам бэкенд (4xx/5xx или success=false).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return e.Message
}

// newAPIError достаёт сообщение из тела. Бэкенд чата кладёт его в detail, мок-слой в message,
// общие обработчики в error. detail бывает списком ошибок валидации.
func newAPIError(status int, raw []byte) *APIError {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	e := &APIError{Status: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		e.Message = strings.TrimSpace(string(raw))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
	if len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil && s != "" {
			e.Message = s
			return e
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(body.Detail, &items) == nil && len(items) > 0 && items[0].Msg != "" {
			e.Message = items[0].Msg
			return e
		}
	}
	switch {
	case body.Message != "":
		e.Message = body.Message
	case body.Error != "":
		e.Message = body.Error
	default:
		e.Message = http.StatusText(status)
	}
	return e
}

// IsStatus сообщает, что err является APIError с данным HTTP-статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Message превращает любую ошибку в одну строку для пользователя.
// Сообщение бэкенда важнее всего; транспортные ошибки заменяются на fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "Request was cancelled."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out. Please try again."
	}
	return fallback
}
