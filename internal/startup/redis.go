package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/fydp-portal/internal/logger"
	redisstorage "github.com/fydp-portal/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis с повторами до maxWait.
// В отличие от сервера, CLI не должен падать через os.Exit: ошибка возвращается вызывающему.
func ConnectRedisWithRetry(redisURL string, ttl, maxWait time.Duration) (*redisstorage.Client, error) {
	deadline := time.Now().Add(maxWait)
	backoff := 500 * time.Millisecond
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := redisstorage.New(ctx, redisURL, ttl)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("redis (gave up after %v): %w", maxWait, err)
		}
		logger.Errorf("redis connect failed, retry in %v: %v", backoff, err)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}
