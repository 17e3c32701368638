package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TobiSchelling/conduit/internal/model"
)

type articleEnvelope struct {
	Article model.Article `json:"article"`
}

// ListArticles returns one page of the global listing, filtered by params.
func (c *Client) ListArticles(ctx context.Context, params model.ListParams) (model.ArticleList, error) {
	var out model.ArticleList
	if err := c.do(ctx, http.MethodGet, "/articles", listQuery(params), nil, &out); err != nil {
		return model.ArticleList{}, err
	}
	return out, nil
}

// FeedArticles returns one page of articles by authors the viewer follows.
// Requires a token.
func (c *Client) FeedArticles(ctx context.Context, limit, offset int) (model.ArticleList, error) {
	q := listQuery(model.ListParams{Limit: limit, Offset: offset})
	var out model.ArticleList
	if err := c.do(ctx, http.MethodGet, "/articles/feed", q, nil, &out); err != nil {
		return model.ArticleList{}, err
	}
	return out, nil
}

// GetArticle fetches a single article by slug.
func (c *Client) GetArticle(ctx context.Context, slug string) (model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodGet, "/articles/"+escape(slug), nil, nil, &out); err != nil {
		return model.Article{}, err
	}
	return out.Article, nil
}

// CreateArticle publishes a new article.
func (c *Client) CreateArticle(ctx context.Context, a model.NewArticle) (model.Article, error) {
	if a.TagList == nil {
		a.TagList = []string{}
	}
	in := map[string]model.NewArticle{"article": a}
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPost, "/articles", nil, in, &out); err != nil {
		return model.Article{}, err
	}
	return out.Article, nil
}

// UpdateArticle sends only the fields set in upd.
func (c *Client) UpdateArticle(ctx context.Context, slug string, upd model.ArticleUpdate) (model.Article, error) {
	in := map[string]model.ArticleUpdate{"article": upd}
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPut, "/articles/"+escape(slug), nil, in, &out); err != nil {
		return model.Article{}, err
	}
	return out.Article, nil
}

// DeleteArticle removes an article.
func (c *Client) DeleteArticle(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/articles/"+escape(slug), nil, nil, nil)
}

// FavoriteArticle marks the article as a favorite and returns the authoritative article.
func (c *Client) FavoriteArticle(ctx context.Context, slug string) (model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPost, "/articles/"+escape(slug)+"/favorite", nil, nil, &out); err != nil {
		return model.Article{}, err
	}
	return out.Article, nil
}

// UnfavoriteArticle removes the favorite and returns the authoritative article.
func (c *Client) UnfavoriteArticle(ctx context.Context, slug string) (model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodDelete, "/articles/"+escape(slug)+"/favorite", nil, nil, &out); err != nil {
		return model.Article{}, err
	}
	return out.Article, nil
}

// Tags lists every known tag.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

func listQuery(p model.ListParams) url.Values {
	q := url.Values{}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.Author != "" {
		q.Set("author", p.Author)
	}
	if p.Favorited != "" {
		q.Set("favorited", p.Favorited)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}
