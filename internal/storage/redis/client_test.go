package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fydp-portal/internal/model"
)

// Нужен живой Redis: REDIS_TEST_URL=redis://localhost:6379/15 go test ./internal/storage/redis
func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := New(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCredentialsRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	profile := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = c.DeleteCredentials(ctx, profile) })

	got, err := c.GetCredentials(ctx, profile)
	if err != nil || !got.Empty() {
		t.Fatalf("missing profile = %+v, %v", got, err)
	}
	cred := model.Credentials{Token: "t", TokenType: "bearer", Role: model.UserRoleStudent, Subject: "a@uni.edu"}
	if err := c.SetCredentials(ctx, profile, cred); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
	if got, _ := c.GetCredentials(ctx, profile); got != cred {
		t.Errorf("GetCredentials = %+v, want %+v", got, cred)
	}
	if ttl := c.cli.TTL(ctx, keyPrefix+profile).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want (0, 1m]", ttl)
	}
	if err := c.DeleteCredentials(ctx, profile); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if got, _ := c.GetCredentials(ctx, profile); !got.Empty() {
		t.Errorf("after delete = %+v", got)
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(context.Background(), "not a url", 0); err == nil {
		t.Error("expected parse error")
	}
}
