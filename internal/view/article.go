// Package view holds the per-identifier state behind the article and profile
// screens. Each view discards responses for an identifier it has moved away
// from, or for any identifier once closed.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/TobiSchelling/conduit/internal/model"
)

// ErrStale means the view moved on before the response arrived.
var ErrStale = errors.New("view changed before the response arrived")

// ArticleGateway fetches single articles.
type ArticleGateway interface {
	GetArticle(ctx context.Context, slug string) (model.Article, error)
}

// ArticleDetail holds one article. It serves as both article and profile
// holder for mutations; as a profile holder it only knows the author.
type ArticleDetail struct {
	gw ArticleGateway

	mu      sync.Mutex
	slug    string
	article model.Article
	loaded  bool
	gen     uint64
}

// NewArticleDetail creates an empty detail view.
func NewArticleDetail(gw ArticleGateway) *ArticleDetail {
	return &ArticleDetail{gw: gw}
}

// Load fetches the article with slug. A NotFoundError is returned as is so
// the caller can navigate away.
func (v *ArticleDetail) Load(ctx context.Context, slug string) (model.Article, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.slug = slug
	v.loaded = false
	v.article = model.Article{}
	v.mu.Unlock()

	a, err := v.gw.GetArticle(ctx, slug)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		return model.Article{}, ErrStale
	}
	if err != nil {
		return model.Article{}, err
	}
	v.article = a
	v.loaded = true
	return a, nil
}

// Close tears the view down; in-flight loads are discarded.
func (v *ArticleDetail) Close() {
	v.mu.Lock()
	v.gen++
	v.slug = ""
	v.loaded = false
	v.article = model.Article{}
	v.mu.Unlock()
}

// Current returns the loaded article.
func (v *ArticleDetail) Current() (model.Article, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.article, v.loaded
}

// IsOwn reports whether viewer wrote the loaded article.
func (v *ArticleDetail) IsOwn(viewer string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && viewer != "" && v.article.Author.Username == viewer
}

func (v *ArticleDetail) Article(slug string) (model.Article, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded || v.article.Slug != slug {
		return model.Article{}, false
	}
	return v.article, true
}

func (v *ArticleDetail) ReplaceArticle(a model.Article) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded && v.article.Slug == a.Slug {
		v.article = a
	}
}

func (v *ArticleDetail) Profile(username string) (model.Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded || v.article.Author.Username != username {
		return model.Profile{}, false
	}
	return v.article.Author, true
}

// ReplaceProfile updates the embedded author only.
func (v *ArticleDetail) ReplaceProfile(p model.Profile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded && v.article.Author.Username == p.Username {
		v.article.Author = p
	}
}
