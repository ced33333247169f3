package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionResponse - ответ POST /chat/session.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	History   []HistoryEntry `json:"history"`
}

// SessionInfo - элемент GET /chat/sessions; title, первое сообщение пользователя или "New Chat".
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	CreatedAt Timestamp `json:"created_at"`
	Title     string    `json:"title"`
}

// Timestamp принимает и RFC 3339, и datetime без зоны (такой отдаёт бэкенд чата), считая его UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.UTC().MarshalJSON()
}

// CreateOrResumeSession создаёт сессию (sessionID пустой) или возвращает историю существующей.
func (c *Client) CreateOrResumeSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/chat/session", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage отправляет сообщение пользователя и возвращает ответ ассистента.
// Сообщение передаётся query-параметром: так устроен контракт бэкенда.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (string, error) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	q.Set("message", message)
	var out struct {
		Assistant string `json:"assistant"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/message", q, nil, &out); err != nil {
		return "", err
	}
	return out.Assistant, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var out []SessionInfo
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}
