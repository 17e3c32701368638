// Package feed resolves feed queries into pages of articles. Each load
// issues one fetch, the latest requested query wins, and a failed fetch
// leaves a distinct empty state rather than the previous page.
package feed

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
)

var (
	// ErrPersonalFeedRequiresSession is returned for personal loads while anonymous.
	ErrPersonalFeedRequiresSession = errors.New("personal feed requires a session")
	// ErrStale means a newer load superseded this one; its result was discarded.
	ErrStale = errors.New("superseded by a newer request")
)

// Status describes what the held page represents.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	// StatusEmpty is a successful load with no articles.
	StatusEmpty
	// StatusFailed is a failed or rejected load; the page is empty.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "invalid"
}

// Gateway is the subset of the API the engine needs.
type Gateway interface {
	ListArticles(ctx context.Context, params model.ListParams) (model.ArticleList, error)
	FeedArticles(ctx context.Context, limit, offset int) (model.ArticleList, error)
	Tags(ctx context.Context) ([]string, error)
}

// SessionReader tells the engine whether a session exists. The engine never
// changes the session.
type SessionReader interface {
	IsAuthenticated() bool
}

// sessionNotifier is implemented by sessions that announce state changes.
// Engines created over one drop personal results when the session ends.
type sessionNotifier interface {
	Subscribe(fn func(session.State)) func()
}

// Engine holds the latest page of a feed.
type Engine struct {
	gw   Gateway
	sess SessionReader

	mu        sync.Mutex
	query     Query
	page      Page
	status    Status
	err       error
	gen       uint64
	listeners map[int]func(Page)
	nextID    int

	unsubscribe func()
}

// New creates an engine positioned on page 1 of the global feed.
func New(gw Gateway, sess SessionReader) *Engine {
	e := &Engine{
		gw:        gw,
		sess:      sess,
		query:     Query{Scope: Global, Page: 1},
		listeners: make(map[int]func(Page)),
	}
	if n, ok := sess.(sessionNotifier); ok {
		e.unsubscribe = n.Subscribe(e.OnSessionChange)
	}
	return e
}

// Close detaches the engine from the session. The held page stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.gen++
	e.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// OnSessionChange reacts to the session leaving Authenticated: a personal
// feed is cleared to the failed state and any in-flight fetch is discarded.
func (e *Engine) OnSessionChange(state session.State) {
	if state == session.Authenticated {
		return
	}
	e.mu.Lock()
	if e.query.Scope != Personal {
		e.mu.Unlock()
		return
	}
	e.gen++
	fns := e.failPersonalLocked()
	e.mu.Unlock()
	notify(fns, Page{})
}

// failPersonalLocked puts the engine in the "personal feed needs a session"
// state and returns the listeners to notify. e.mu must be held.
func (e *Engine) failPersonalLocked() []func(Page) {
	e.page = Page{}
	e.status = StatusFailed
	e.err = ErrPersonalFeedRequiresSession
	return e.snapshotListeners()
}

// Load fetches the page described by q and replaces the held page in one
// step. When q's filter differs from the current query, the page is reset
// to 1. If a newer Load or a Reset happens before the fetch completes, the
// result is dropped and ErrStale returned.
func (e *Engine) Load(ctx context.Context, q Query) (Page, error) {
	e.mu.Lock()
	if !q.SameFilter(e.query) {
		q.Page = 1
	}
	q = q.normalized()
	e.gen++
	gen := e.gen
	e.query = q

	if q.Scope == Personal && !e.authenticated() {
		fns := e.failPersonalLocked()
		e.mu.Unlock()
		notify(fns, Page{})
		return Page{}, ErrPersonalFeedRequiresSession
	}

	e.status = StatusLoading
	e.err = nil
	e.mu.Unlock()

	var list model.ArticleList
	var err error
	if q.Scope == Personal {
		list, err = e.gw.FeedArticles(ctx, PageSize, q.Offset())
	} else {
		list, err = e.gw.ListArticles(ctx, q.listParams())
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return Page{}, ErrStale
	}
	// The session may have ended without telling us.
	if q.Scope == Personal && !e.authenticated() {
		fns := e.failPersonalLocked()
		e.mu.Unlock()
		notify(fns, Page{})
		return Page{}, ErrPersonalFeedRequiresSession
	}

	if err != nil {
		log.Printf("feed: loading %s page %d: %v", q.Scope, q.Page, err)
		e.page = Page{}
		e.status = StatusFailed
		e.err = err
	} else {
		items := list.Articles
		if items == nil {
			items = []model.Article{}
		}
		e.page = Page{Items: items, TotalCount: list.ArticlesCount}
		e.err = nil
		if len(items) == 0 {
			e.status = StatusEmpty
		} else {
			e.status = StatusLoaded
		}
	}
	page := e.page.clone()
	fns := e.snapshotListeners()
	e.mu.Unlock()

	notify(fns, page)
	return page, err
}

// Reload fetches the current query again.
func (e *Engine) Reload(ctx context.Context) (Page, error) {
	return e.Load(ctx, e.Query())
}

// SetScope switches between global and personal feeds.
func (e *Engine) SetScope(ctx context.Context, s Scope) (Page, error) {
	return e.Load(ctx, e.Query().WithScope(s))
}

// SetTag filters by tag; "" clears the filter.
func (e *Engine) SetTag(ctx context.Context, tag string) (Page, error) {
	return e.Load(ctx, e.Query().WithTag(tag))
}

// SetAuthor filters by author; "" clears the filter.
func (e *Engine) SetAuthor(ctx context.Context, username string) (Page, error) {
	return e.Load(ctx, e.Query().WithAuthor(username))
}

// SetFavoritedBy filters by who favorited; "" clears the filter.
func (e *Engine) SetFavoritedBy(ctx context.Context, username string) (Page, error) {
	return e.Load(ctx, e.Query().WithFavoritedBy(username))
}

// SetPage moves to another page of the current filter.
func (e *Engine) SetPage(ctx context.Context, page int) (Page, error) {
	return e.Load(ctx, e.Query().WithPage(page))
}

// Reset drops the held page and discards any in-flight result, for when the
// consuming view goes away.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.gen++
	e.page = Page{}
	e.status = StatusIdle
	e.err = nil
	e.mu.Unlock()
}

// Query returns the most recently requested query.
func (e *Engine) Query() Query {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Page returns a copy of the held page.
func (e *Engine) Page() Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.clone()
}

// Status returns what the held page represents.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the error of the last applied load, if it failed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Article returns the held snapshot of an article on the current page.
func (e *Engine) Article(slug string) (model.Article, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.page.Items {
		if a.Slug == slug {
			return a, true
		}
	}
	return model.Article{}, false
}

// ReplaceArticle swaps the snapshot with the same slug for a. Articles not on
// the current page are ignored.
func (e *Engine) ReplaceArticle(a model.Article) {
	e.mu.Lock()
	idx := -1
	for i := range e.page.Items {
		if e.page.Items[i].Slug == a.Slug {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	next := e.page.clone()
	next.Items[idx] = a
	e.page = next
	page := next.clone()
	fns := e.snapshotListeners()
	e.mu.Unlock()

	notify(fns, page)
}

// Tags lists the known tags for the tag picker.
func (e *Engine) Tags(ctx context.Context) ([]string, error) {
	tags, err := e.gw.Tags(ctx)
	if err != nil {
		log.Printf("feed: loading tags: %v", err)
		return nil, err
	}
	return tags, nil
}

// Subscribe registers fn to be called with every page the engine applies.
// The returned func removes the subscription.
func (e *Engine) Subscribe(fn func(Page)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) authenticated() bool {
	return e.sess != nil && e.sess.IsAuthenticated()
}

func (e *Engine) snapshotListeners() []func(Page) {
	fns := make([]func(Page), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(Page), p Page) {
	for _, fn := range fns {
		fn(p)
	}
}
