// Package auth - явный контекст авторизации: токен и роль передаются компонентам,
// а не читаются из глобального хранилища.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/storage"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrForbidden   = errors.New("this feature is not available for your role")
)

// Session - неизменяемые учётные данные текущего пользователя. Реализует portal.TokenSource.
type Session struct {
	cred model.Credentials
}

func NewSession(cred model.Credentials) *Session {
	return &Session{cred: cred}
}

func (s *Session) AccessToken() string {
	if s == nil {
		return ""
	}
	return s.cred.Token
}

func (s *Session) Role() model.UserRole {
	if s == nil {
		return ""
	}
	return s.cred.Role
}

func (s *Session) Subject() string {
	if s == nil {
		return ""
	}
	return s.cred.Subject
}

// Require проверяет, что пользователь вошёл и имеет одну из ролей.
func (s *Session) Require(roles ...model.UserRole) error {
	if s == nil || s.cred.Empty() {
		return ErrNotLoggedIn
	}
	for _, r := range roles {
		if s.cred.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// SignInClient - часть portal.Client, нужная для входа.
type SignInClient interface {
	SignIn(ctx context.Context, gsuiteID, password string) (model.Credentials, error)
}

// Login выполняет вход и сохраняет учётные данные в профиль.
func Login(ctx context.Context, client SignInClient, store storage.CredentialStore, profile, gsuiteID, password string) (*Session, error) {
	cred, err := client.SignIn(ctx, gsuiteID, password)
	if err != nil {
		logger.Errorf("auth login gsuite_id=%s: %v", gsuiteID, err)
		return nil, err
	}
	if cred.Empty() {
		return nil, fmt.Errorf("sign in: backend returned empty token")
	}
	if err := store.SetCredentials(ctx, profile, cred); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	logger.Infof("auth: вход выполнен profile=%s role=%s", profile, cred.Role)
	return NewSession(cred), nil
}

// Restore загружает сохранённые учётные данные; ErrNotLoggedIn, если профиль пуст.
func Restore(ctx context.Context, store storage.CredentialStore, profile string) (*Session, error) {
	cred, err := store.GetCredentials(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if cred.Empty() {
		return nil, ErrNotLoggedIn
	}
	return NewSession(cred), nil
}

func Logout(ctx context.Context, store storage.CredentialStore, profile string) error {
	if err := store.DeleteCredentials(ctx, profile); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
