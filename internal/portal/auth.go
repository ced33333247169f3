package portal

import (
	"context"
	"net/http"

	"github.com/fydp-portal/internal/model"
)

type signInRequest struct {
	GsuiteID string `json:"gsuite_id"`
	Password string `json:"password"`
}

type signUpRequest struct {
	GsuiteID string         `json:"gsuite_id"`
	Password string         `json:"password"`
	Role     model.UserRole `json:"role"`
}

// SignIn выполняет вход и возвращает токен с ролью.
func (c *Client) SignIn(ctx context.Context, gsuiteID, password string) (model.Credentials, error) {
	var out struct {
		AccessToken string         `json:"access_token"`
		TokenType   string         `json:"token_type"`
		Role        model.UserRole `json:"role"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signin/", nil, signInRequest{GsuiteID: gsuiteID, Password: password}, &out); err != nil {
		return model.Credentials{}, err
	}
	return model.Credentials{
		Token:     out.AccessToken,
		TokenType: out.TokenType,
		Role:      out.Role,
		Subject:   gsuiteID,
	}, nil
}

// SignUp регистрирует пользователя и возвращает его id.
func (c *Client) SignUp(ctx context.Context, gsuiteID, password string, role model.UserRole) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	req := signUpRequest{GsuiteID: gsuiteID, Password: password, Role: role}
	if err := c.do(ctx, http.MethodPost, "/auth/signup/", nil, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}
