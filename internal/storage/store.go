package storage

import (
	"context"

	"github.com/fydp-portal/internal/model"
)

// CredentialStore - хранилище токена и роли по имени профиля (локальное хранилище клиента).
// Реализации: redis.Client, devstore.Client (JSON-файл), memory.Client (для тестов).
// Отсутствующий профиль не считается ошибкой, возвращаются пустые Credentials.
type CredentialStore interface {
	SetCredentials(ctx context.Context, profile string, cred model.Credentials) error
	GetCredentials(ctx context.Context, profile string) (model.Credentials, error)
	DeleteCredentials(ctx context.Context, profile string) error
	Close() error
}
