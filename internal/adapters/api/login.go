package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

var _ ports.Authenticator = (*Client)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginDetail struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login exchanges a username and password for a short-lived JWT.
func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	var resp envelope[loginDetail]
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "login",
		body:   loginRequest{Username: username, Password: password},
	}, &resp)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if resp.Detail.AccessToken == "" {
		return domain.LoginResult{}, errors.New("login response missing access token")
	}

	return domain.LoginResult{
		AccessToken:  resp.Detail.AccessToken,
		IDToken:      resp.Detail.IDToken,
		RefreshToken: resp.Detail.RefreshToken,
		ExpiresIn:    time.Duration(resp.Detail.ExpiresIn) * time.Second,
	}, nil
}
