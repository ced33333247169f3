package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fydp-portal/internal/model"
)

func TestCredentialsRoundTrip(t *testing.T) {
	c := New(0)
	ctx := context.Background()
	cred := model.Credentials{Token: "t", TokenType: "bearer", Role: model.UserRoleStudent, Subject: "a@uni.edu"}

	got, err := c.GetCredentials(ctx, "default")
	if err != nil || !got.Empty() {
		t.Fatalf("empty profile = %+v, %v", got, err)
	}
	if err := c.SetCredentials(ctx, "default", cred); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
	if got, _ := c.GetCredentials(ctx, "default"); got != cred {
		t.Errorf("GetCredentials = %+v, want %+v", got, cred)
	}
	if got, _ := c.GetCredentials(ctx, "other"); !got.Empty() {
		t.Errorf("other profile = %+v, want empty", got)
	}
	if err := c.DeleteCredentials(ctx, "default"); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if got, _ := c.GetCredentials(ctx, "default"); !got.Empty() {
		t.Errorf("after delete = %+v", got)
	}
}

func TestCredentialsExpire(t *testing.T) {
	c := New(10 * time.Millisecond)
	ctx := context.Background()
	_ = c.SetCredentials(ctx, "p", model.Credentials{Token: "t"})
	time.Sleep(30 * time.Millisecond)
	if got, _ := c.GetCredentials(ctx, "p"); !got.Empty() {
		t.Errorf("expired credentials returned: %+v", got)
	}
}
