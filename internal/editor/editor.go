// Package editor creates new articles and sends partial updates for
// existing ones.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
)

var (
	// ErrNotAuthor is returned when editing an article written by someone else.
	ErrNotAuthor = errors.New("only the author can edit this article")
	// ErrNoChanges is returned when an edit changes nothing.
	ErrNoChanges = errors.New("nothing changed")
)

// Gateway is the subset of the API the editor needs.
type Gateway interface {
	GetArticle(ctx context.Context, slug string) (model.Article, error)
	CreateArticle(ctx context.Context, a model.NewArticle) (model.Article, error)
	UpdateArticle(ctx context.Context, slug string, upd model.ArticleUpdate) (model.Article, error)
}

// Session is what the editor needs from the session manager.
type Session interface {
	IsAuthenticated() bool
	Viewer() string
	HandleAuthError(err error)
}

// Editor publishes one draft at a time.
type Editor struct {
	gw   Gateway
	sess Session

	mu       sync.Mutex
	slug     string
	original Draft
}

// New creates an editor for a new article.
func New(gw Gateway, sess Session) *Editor {
	return &Editor{gw: gw, sess: sess}
}

// Load binds the editor to an existing article and returns it as a draft.
func (e *Editor) Load(ctx context.Context, slug string) (Draft, error) {
	if !e.sess.IsAuthenticated() {
		return Draft{}, session.ErrNotAuthenticated
	}
	a, err := e.gw.GetArticle(ctx, slug)
	if err != nil {
		e.sess.HandleAuthError(err)
		return Draft{}, fmt.Errorf("loading article %s: %w", slug, err)
	}
	if a.Author.Username != e.sess.Viewer() {
		return Draft{}, ErrNotAuthor
	}

	d := DraftFrom(a)
	e.mu.Lock()
	e.slug = a.Slug
	e.original = DraftFrom(a)
	e.mu.Unlock()
	return d, nil
}

// Reset returns the editor to composing a new article.
func (e *Editor) Reset() {
	e.mu.Lock()
	e.slug = ""
	e.original = Draft{}
	e.mu.Unlock()
}

// Slug is the article being edited, or "" for a new one.
func (e *Editor) Slug() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slug
}

// Create publishes d as a new article regardless of what the editor was
// bound to.
func (e *Editor) Create(ctx context.Context, d Draft) (model.Article, error) {
	e.Reset()
	return e.Publish(ctx, d)
}

// Publish creates the article, or for a loaded one sends only the fields
// that changed since Load. Afterwards the editor is bound to the result.
func (e *Editor) Publish(ctx context.Context, d Draft) (model.Article, error) {
	if !e.sess.IsAuthenticated() {
		return model.Article{}, session.ErrNotAuthenticated
	}
	if fields := d.validate(); len(fields) > 0 {
		return model.Article{}, &api.ValidationError{Fields: fields}
	}

	e.mu.Lock()
	slug := e.slug
	original := e.original
	e.mu.Unlock()

	var a model.Article
	var err error
	if slug == "" {
		a, err = e.gw.CreateArticle(ctx, model.NewArticle{
			Title:       d.Title,
			Description: d.Description,
			Body:        d.Body,
			TagList:     slices.Clone(d.TagList),
		})
	} else {
		upd := d.diff(original)
		if upd.Empty() {
			return model.Article{}, ErrNoChanges
		}
		a, err = e.gw.UpdateArticle(ctx, slug, upd)
	}
	if err != nil {
		e.sess.HandleAuthError(err)
		return model.Article{}, err
	}

	log.Printf("editor: published %s", a.Slug)
	e.mu.Lock()
	e.slug = a.Slug
	e.original = DraftFrom(a)
	e.mu.Unlock()
	return a, nil
}
