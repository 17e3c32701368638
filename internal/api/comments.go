package api

import (
	"context"
	"net/http"

	"github.com/TobiSchelling/conduit/internal/model"
)

// ListComments returns the thread of an article in server order.
func (c *Client) ListComments(ctx context.Context, slug string) ([]model.Comment, error) {
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/articles/"+escape(slug)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// CreateComment adds a comment and returns it with its server-assigned id.
func (c *Client) CreateComment(ctx context.Context, slug, body string) (model.Comment, error) {
	in := map[string]map[string]string{"comment": {"body": body}}
	var out struct {
		Comment model.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/articles/"+escape(slug)+"/comments", nil, in, &out); err != nil {
		return model.Comment{}, err
	}
	return out.Comment, nil
}

// DeleteComment removes a comment from an article.
func (c *Client) DeleteComment(ctx context.Context, slug, id string) error {
	path := "/articles/" + escape(slug) + "/comments/" + escape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
