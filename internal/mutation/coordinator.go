// Package mutation applies favorite and follow toggles optimistically and
// rolls them back when the server refuses. Deletions are confirmed first and
// never optimistic.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
)

var (
	// ErrMutationPending is returned when a mutation for the same entity is
	// still in flight.
	ErrMutationPending = errors.New("a change to this item is already in progress")
	// ErrNotConfirmed is returned when the user declined a destructive action.
	ErrNotConfirmed = errors.New("not confirmed")
	// ErrNotHeld is returned when the holder has no snapshot of the target.
	ErrNotHeld = errors.New("item is not loaded")

	errEmptyResponse = errors.New("response carried no record")
)

// Gateway is the subset of the API the coordinator needs.
type Gateway interface {
	FavoriteArticle(ctx context.Context, slug string) (model.Article, error)
	UnfavoriteArticle(ctx context.Context, slug string) (model.Article, error)
	DeleteArticle(ctx context.Context, slug string) error
	Follow(ctx context.Context, username string) (model.Profile, error)
	Unfollow(ctx context.Context, username string) (model.Profile, error)
}

// Session is what the coordinator needs from the session manager.
type Session interface {
	IsAuthenticated() bool
	HandleAuthError(err error)
}

// ArticleHolder is any state that holds article snapshots, such as a feed page
// or an article detail view.
type ArticleHolder interface {
	Article(slug string) (model.Article, bool)
	ReplaceArticle(a model.Article)
}

// ProfileHolder is any state that holds profile snapshots.
type ProfileHolder interface {
	Profile(username string) (model.Profile, bool)
	ReplaceProfile(p model.Profile)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Coordinator serializes mutations per entity. It is safe for concurrent use.
type Coordinator struct {
	gw   Gateway
	sess Session

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a coordinator.
func New(gw Gateway, sess Session) *Coordinator {
	return &Coordinator{
		gw:       gw,
		sess:     sess,
		inFlight: make(map[string]struct{}),
	}
}

// ToggleFavorite flips the favorited flag and count of the held article right
// away, then asks the server. On success the server's article replaces the
// snapshot; on failure the recorded values are restored and the error
// returned.
func (c *Coordinator) ToggleFavorite(ctx context.Context, holder ArticleHolder, slug string) (model.Article, error) {
	if !c.sess.IsAuthenticated() {
		return model.Article{}, session.ErrNotAuthenticated
	}
	key := "article:" + slug
	if !c.begin(key) {
		return model.Article{}, ErrMutationPending
	}
	defer c.end(key)

	prev, ok := holder.Article(slug)
	if !ok {
		return model.Article{}, fmt.Errorf("favorite %s: %w", slug, ErrNotHeld)
	}

	optimistic := prev
	optimistic.Favorited = !prev.Favorited
	if optimistic.Favorited {
		optimistic.FavoritesCount++
	} else if optimistic.FavoritesCount > 0 {
		optimistic.FavoritesCount--
	}
	holder.ReplaceArticle(optimistic)

	var updated model.Article
	var err error
	if prev.Favorited {
		updated, err = c.gw.UnfavoriteArticle(ctx, slug)
	} else {
		updated, err = c.gw.FavoriteArticle(ctx, slug)
	}
	if err == nil && updated.Slug == "" {
		err = &api.TransportError{Op: "favorite " + slug, Err: errEmptyResponse}
	}
	if err != nil {
		log.Printf("mutation: favorite %s failed, reverting: %v", slug, err)
		if cur, ok := holder.Article(slug); ok {
			cur.Favorited = prev.Favorited
			cur.FavoritesCount = prev.FavoritesCount
			holder.ReplaceArticle(cur)
		}
		c.sess.HandleAuthError(err)
		return prev, err
	}

	holder.ReplaceArticle(updated)
	return updated, nil
}

// ToggleFollow flips the following flag of the held profile the same way
// ToggleFavorite does for articles.
func (c *Coordinator) ToggleFollow(ctx context.Context, holder ProfileHolder, username string) (model.Profile, error) {
	if !c.sess.IsAuthenticated() {
		return model.Profile{}, session.ErrNotAuthenticated
	}
	key := "profile:" + username
	if !c.begin(key) {
		return model.Profile{}, ErrMutationPending
	}
	defer c.end(key)

	prev, ok := holder.Profile(username)
	if !ok {
		return model.Profile{}, fmt.Errorf("follow %s: %w", username, ErrNotHeld)
	}

	optimistic := prev
	optimistic.Following = !prev.Following
	holder.ReplaceProfile(optimistic)

	var updated model.Profile
	var err error
	if prev.Following {
		updated, err = c.gw.Unfollow(ctx, username)
	} else {
		updated, err = c.gw.Follow(ctx, username)
	}
	if err == nil && updated.Username == "" {
		err = &api.TransportError{Op: "follow " + username, Err: errEmptyResponse}
	}
	if err != nil {
		log.Printf("mutation: follow %s failed, reverting: %v", username, err)
		if cur, ok := holder.Profile(username); ok {
			cur.Following = prev.Following
			holder.ReplaceProfile(cur)
		}
		c.sess.HandleAuthError(err)
		return prev, err
	}

	holder.ReplaceProfile(updated)
	return updated, nil
}

// DeleteArticle removes an article after confirm approves. Nothing local
// changes; on success the caller navigates away.
func (c *Coordinator) DeleteArticle(ctx context.Context, slug string, confirm Confirmer) error {
	if !c.sess.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	if confirm == nil || !confirm.Confirm(fmt.Sprintf("Delete article %q?", slug)) {
		return ErrNotConfirmed
	}
	key := "article:" + slug
	if !c.begin(key) {
		return ErrMutationPending
	}
	defer c.end(key)

	if err := c.gw.DeleteArticle(ctx, slug); err != nil {
		c.sess.HandleAuthError(err)
		return fmt.Errorf("deleting article %s: %w", slug, err)
	}
	return nil
}

// Pending reports whether a mutation for key is in flight.
func (c *Coordinator) Pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[key]
	return ok
}

func (c *Coordinator) begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Coordinator) end(key string) {
	c.mu.Lock()
	delete(c.inFlight, key)
	c.mu.Unlock()
}
