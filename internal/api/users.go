package api

import (
	"context"
	"net/http"

	"github.com/TobiSchelling/conduit/internal/model"
)

type userEnvelope struct {
	User model.User `json:"user"`
}

// Login exchanges credentials for the user record and its token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.User, error) {
	in := map[string]model.Credentials{"user": creds}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users/login", nil, in, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// Register creates an account and returns the user record and its token.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	in := map[string]model.Registration{"user": reg}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// CurrentUser fetches the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// UpdateUser applies a partial update to the current user.
func (c *Client) UpdateUser(ctx context.Context, upd model.UserUpdate) (model.User, error) {
	in := map[string]model.UserUpdate{"user": upd}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/user", nil, in, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}
