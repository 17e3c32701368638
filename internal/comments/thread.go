// Package comments keeps the comment thread of one article consistent with
// the server. Nothing is inserted or removed until the server agrees.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
)

var (
	// ErrStale means the thread moved to another article before the response arrived.
	ErrStale = errors.New("thread changed before the response arrived")
	// ErrNotConfirmed is returned when the user declined a delete.
	ErrNotConfirmed = errors.New("not confirmed")
)

// Gateway is the subset of the API the thread needs.
type Gateway interface {
	ListComments(ctx context.Context, slug string) ([]model.Comment, error)
	CreateComment(ctx context.Context, slug, body string) (model.Comment, error)
	DeleteComment(ctx context.Context, slug, id string) error
}

// Session is what the thread needs from the session manager.
type Session interface {
	IsAuthenticated() bool
	HandleAuthError(err error)
}

// Confirmer asks the user to approve a delete.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Thread holds the comments of a single article, newest first.
type Thread struct {
	gw   Gateway
	sess Session

	mu       sync.Mutex
	slug     string
	comments []model.Comment
	gen      uint64
}

// New creates an empty thread.
func New(gw Gateway, sess Session) *Thread {
	return &Thread{gw: gw, sess: sess}
}

// Load binds the thread to slug and fetches its comments. A Load for another
// slug issued meanwhile wins.
func (t *Thread) Load(ctx context.Context, slug string) ([]model.Comment, error) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.slug = slug
	t.comments = nil
	t.mu.Unlock()

	list, err := t.gw.ListComments(ctx, slug)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("loading comments for %s: %w", slug, err)
	}
	t.comments = append([]model.Comment(nil), list...)
	return t.copyLocked(), nil
}

// Create posts a comment and prepends the server's version on success. An
// unbound thread becomes bound to slug.
func (t *Thread) Create(ctx context.Context, slug, body string) (model.Comment, error) {
	if !t.sess.IsAuthenticated() {
		return model.Comment{}, session.ErrNotAuthenticated
	}
	if strings.TrimSpace(body) == "" {
		return model.Comment{}, &api.ValidationError{Fields: map[string][]string{"body": {"can't be blank"}}}
	}

	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()

	c, err := t.gw.CreateComment(ctx, slug, body)
	if err != nil {
		t.sess.HandleAuthError(err)
		return model.Comment{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return c, nil
	}
	// A thread that was never loaded adopts the article it was posted to.
	if t.slug == "" {
		t.slug = slug
	}
	if t.slug == slug {
		t.comments = append([]model.Comment{c}, t.comments...)
	}
	return c, nil
}

// Delete removes the comment with id after confirm approves and the server
// accepts.
func (t *Thread) Delete(ctx context.Context, slug, id string, confirm Confirmer) error {
	if !t.sess.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	if confirm == nil || !confirm.Confirm("Delete this comment?") {
		return ErrNotConfirmed
	}

	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()

	if err := t.gw.DeleteComment(ctx, slug, id); err != nil {
		t.sess.HandleAuthError(err)
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.slug != slug {
		return nil
	}
	kept := t.comments[:0:0]
	for _, c := range t.comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	t.comments = kept
	return nil
}

// Close detaches the thread; in-flight results are discarded.
func (t *Thread) Close() {
	t.mu.Lock()
	t.gen++
	t.slug = ""
	t.comments = nil
	t.mu.Unlock()
}

// Slug returns the article the thread is bound to.
func (t *Thread) Slug() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slug
}

// Comments returns a copy of the thread, newest first.
func (t *Thread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *Thread) copyLocked() []model.Comment {
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

// CanDelete reports whether viewer may delete c.
func CanDelete(c model.Comment, viewer string) bool {
	return viewer != "" && c.Author.Username == viewer
}
