// Package portal - REST-клиент бэкенда FYDP: чат-сессии, приглашения в группу, вход.
// Базовый URL фиксирован, каждый запрос несёт Authorization: Bearer из внедрённого TokenSource.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fydp-portal/internal/logger"
)

// maxErrorBody - сколько байт тела ошибки читаем для поиска сообщения.
const maxErrorBody = 64 << 10

// TokenSource отдаёт текущий bearer-токен. Пустая строка означает запрос без Authorization.
type TokenSource interface {
	AccessToken() string
}

// Client вызывает бэкенд портала. Таймаут задаёт только переданный http.Client:
// по умолчанию его нет, как и у браузерного клиента.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient создаёт клиент. tokens может быть nil (только для /auth/*).
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// WithTokens возвращает копию клиента с другим источником токена (после входа).
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// Не-2xx превращается в *APIError с сообщением бэкенда.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	defer logger.DeferLogDuration("portal "+method+" "+path, time.Now())()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// envelope - обёртка ответов /api/* ({success, message, data}).
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// doEnvelope - do для эндпоинтов с обёрткой; success=false считается ошибкой бэкенда.
func doEnvelope[T any](ctx context.Context, c *Client, method, path string, body any) (T, string, error) {
	var env envelope[T]
	if err := c.do(ctx, method, path, nil, body, &env); err != nil {
		var zero T
		return zero, "", err
	}
	if !env.Success {
		var zero T
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return zero, "", &APIError{Status: http.StatusOK, Message: msg}
	}
	return env.Data, env.Message, nil
}
