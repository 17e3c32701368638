package api

import (
	"context"
	"net/http"

	"github.com/TobiSchelling/conduit/internal/model"
)

type profileEnvelope struct {
	Profile model.Profile `json:"profile"`
}

// GetProfile fetches a profile as seen by the current viewer.
func (c *Client) GetProfile(ctx context.Context, username string) (model.Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodGet, "/profiles/"+escape(username), nil, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out.Profile, nil
}

// Follow follows a user and returns the authoritative profile.
func (c *Client) Follow(ctx context.Context, username string) (model.Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodPost, "/profiles/"+escape(username)+"/follow", nil, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out.Profile, nil
}

// Unfollow stops following a user and returns the authoritative profile.
func (c *Client) Unfollow(ctx context.Context, username string) (model.Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodDelete, "/profiles/"+escape(username)+"/follow", nil, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out.Profile, nil
}
