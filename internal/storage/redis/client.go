package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fydp-portal/internal/model"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "portal:cred:"

type Client struct {
	cli *redis.Client
	ttl time.Duration
}

// New подключается и проверяет Redis через PING. При ttl <= 0 ключи без срока жизни.
func New(ctx context.Context, url string, ttl time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetCredentials сохраняет токен и роль одним JSON по ключу portal:cred:{profile}.
func (c *Client) SetCredentials(ctx context.Context, profile string, cred model.Credentials) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	return c.cli.Set(ctx, keyPrefix+profile, data, c.ttl).Err()
}

func (c *Client) GetCredentials(ctx context.Context, profile string) (model.Credentials, error) {
	val, err := c.cli.Get(ctx, keyPrefix+profile).Bytes()
	if err == redis.Nil {
		return model.Credentials{}, nil
	}
	if err != nil {
		return model.Credentials{}, err
	}
	var cred model.Credentials
	if err := json.Unmarshal(val, &cred); err != nil {
		return model.Credentials{}, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return cred, nil
}

func (c *Client) DeleteCredentials(ctx context.Context, profile string) error {
	return c.cli.Del(ctx, keyPrefix+profile).Err()
}
