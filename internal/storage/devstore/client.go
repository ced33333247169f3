package devstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/storage/memory"
)

// Client реализует CredentialStore для локальной работы без Redis. Чтение идёт из памяти,
// запись ещё и в JSON-файл, так что вход переживает перезапуск CLI.
type Client struct {
	mem  *memory.Client
	path string
	ttl  time.Duration

	mu sync.Mutex // сериализует чтение-изменение-запись файла
}

type fileEntry struct {
	Credentials model.Credentials `json:"credentials"`
	ExpiresAt   time.Time         `json:"expires_at,omitempty"`
}

func New(path string, ttl time.Duration) *Client {
	return &Client{mem: memory.New(ttl), path: path, ttl: ttl}
}

func (c *Client) Close() error { return c.mem.Close() }

func (c *Client) SetCredentials(ctx context.Context, profile string, cred model.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.readLocked()
	if err != nil {
		return err
	}
	e := fileEntry{Credentials: cred}
	if c.ttl > 0 {
		e.ExpiresAt = time.Now().Add(c.ttl).UTC()
	}
	entries[profile] = e
	if err := c.writeLocked(entries); err != nil {
		return err
	}
	return c.mem.SetCredentials(ctx, profile, cred)
}

func (c *Client) GetCredentials(ctx context.Context, profile string) (model.Credentials, error) {
	cred, err := c.mem.GetCredentials(ctx, profile)
	if err != nil || !cred.Empty() {
		return cred, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.readLocked()
	if err != nil {
		return model.Credentials{}, err
	}
	e, ok := entries[profile]
	if !ok || (!e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)) {
		return model.Credentials{}, nil
	}
	_ = c.mem.SetCredentials(ctx, profile, e.Credentials)
	return e.Credentials, nil
}

func (c *Client) DeleteCredentials(ctx context.Context, profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.readLocked()
	if err != nil {
		return err
	}
	if _, ok := entries[profile]; ok {
		delete(entries, profile)
		if err := c.writeLocked(entries); err != nil {
			return err
		}
	}
	return c.mem.DeleteCredentials(ctx, profile)
}

func (c *Client) readLocked() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", c.path, err)
	}
	return entries, nil
}

// writeLocked пишет файл атомарно (временный файл + rename), права 0600.
func (c *Client) writeLocked(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
