package middleware

import (
	"context"
	"net/http"
	"strings"
)

// TokenResolver находит пользователя по bearer-токену. ok=false, если токен неизвестен.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (userID, role string, ok bool)
}

// BearerAuth проверяет Authorization: Bearer <token> и кладёт user_id и роль в контекст.
// Ответ 401 в формате {"detail": ...}, как у остальных ошибок /auth и /chat.
func BearerAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(h, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}
			userID, role, ok := resolver.ResolveToken(r.Context(), strings.TrimSpace(token))
			if !ok {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только пользователей с одной из ролей (403 иначе).
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"Not enough permissions"}`))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
}
