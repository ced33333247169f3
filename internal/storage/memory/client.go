package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fydp-portal/internal/model"
)

type item struct {
	val model.Credentials
	exp time.Time
}

type Client struct {
	mu  sync.RWMutex
	ttl time.Duration
	cr  map[string]item
}

// New создаёт хранилище; при ttl <= 0 записи не истекают.
func New(ttl time.Duration) *Client {
	return &Client{ttl: ttl, cr: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetCredentials(ctx context.Context, profile string, cred model.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := item{val: cred}
	if c.ttl > 0 {
		it.exp = time.Now().Add(c.ttl)
	}
	c.cr[profile] = it
	return nil
}

func (c *Client) GetCredentials(ctx context.Context, profile string) (model.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cr[profile]
	if !ok || (!v.exp.IsZero() && time.Now().After(v.exp)) {
		return model.Credentials{}, nil
	}
	return v.val, nil
}

func (c *Client) DeleteCredentials(ctx context.Context, profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cr, profile)
	return nil
}
