package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/session"
)

type fakeGateway struct {
	mu       sync.Mutex
	articles []model.Article
	err      error
	params   []model.ListParams
	feeds    int
	// release, when set, is received from before a list call returns.
	release map[string]chan struct{}
	// feedStarted and feedRelease, when set, hold a personal fetch open.
	feedStarted chan struct{}
	feedRelease chan struct{}
}

func (f *fakeGateway) ListArticles(_ context.Context, p model.ListParams) (model.ArticleList, error) {
	f.mu.Lock()
	f.params = append(f.params, p)
	ch := f.release[p.Tag]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	if f.err != nil {
		return model.ArticleList{}, f.err
	}
	var matched []model.Article
	for _, a := range f.articles {
		if p.Tag != "" && !hasTag(a, p.Tag) {
			continue
		}
		if p.Author != "" && a.Author.Username != p.Author {
			continue
		}
		matched = append(matched, a)
	}
	total := len(matched)
	if p.Offset >= len(matched) {
		return model.ArticleList{Articles: []model.Article{}, ArticlesCount: total}, nil
	}
	end := p.Offset + p.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return model.ArticleList{Articles: matched[p.Offset:end], ArticlesCount: total}, nil
}

func (f *fakeGateway) FeedArticles(_ context.Context, limit, offset int) (model.ArticleList, error) {
	f.mu.Lock()
	f.feeds++
	f.mu.Unlock()
	if f.feedStarted != nil {
		close(f.feedStarted)
		<-f.feedRelease
	}
	return model.ArticleList{Articles: []model.Article{{Slug: "followed"}}, ArticlesCount: 1}, nil
}

func (f *fakeGateway) Tags(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"go", "rust"}, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}

func hasTag(a model.Article, tag string) bool {
	for _, t := range a.TagList {
		if t == tag {
			return true
		}
	}
	return false
}

type fakeSession bool

func (s fakeSession) IsAuthenticated() bool { return bool(s) }

// liveSession can be signed out mid-test and announces it to subscribers.
type liveSession struct {
	mu     sync.Mutex
	authed bool
	fns    []func(session.State)
}

func (s *liveSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *liveSession) Subscribe(fn func(session.State)) func() {
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
	return func() {}
}

func (s *liveSession) logout() {
	s.mu.Lock()
	s.authed = false
	fns := append([]func(session.State){}, s.fns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(session.Unauthenticated)
	}
}

// quietSession changes state without telling anyone.
type quietSession struct {
	mu     sync.Mutex
	authed bool
}

func (s *quietSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *quietSession) set(v bool) {
	s.mu.Lock()
	s.authed = v
	s.mu.Unlock()
}

func makeArticles(n int, tag string) []model.Article {
	out := make([]model.Article, n)
	for i := range out {
		out[i] = model.Article{
			Slug:    fmt.Sprintf("%s-%d", tag, i),
			Title:   fmt.Sprintf("Article %d", i),
			TagList: []string{tag},
			Author:  model.Profile{Username: "alice"},
		}
	}
	return out
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int
		pages int
		pager bool
	}{
		{0, 0, false},
		{1, 1, false},
		{10, 1, false},
		{11, 2, true},
		{25, 3, true},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total); got != tt.pages {
			t.Errorf("TotalPages(%d) = %d, want %d", tt.total, got, tt.pages)
		}
		if got := ShowPager(tt.total); got != tt.pager {
			t.Errorf("ShowPager(%d) = %v, want %v", tt.total, got, tt.pager)
		}
	}
}

func TestLoadSecondPage(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(25, "go")}
	e := New(gw, fakeSession(false))

	page, err := e.Load(context.Background(), Query{Page: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 5 || page.TotalCount != 25 {
		t.Errorf("expected 5 of 25, got %d of %d", len(page.Items), page.TotalCount)
	}
	if page.TotalPages() != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages())
	}
	if p := gw.params[0]; p.Limit != PageSize || p.Offset != 20 {
		t.Errorf("unexpected params %+v", p)
	}
	if gw.calls() != 1 {
		t.Errorf("expected exactly one fetch, got %d", gw.calls())
	}
}

func TestFilterChangeResetsPage(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(25, "go")}
	e := New(gw, fakeSession(false))
	ctx := context.Background()

	e.SetPage(ctx, 3)
	if e.Query().Page != 3 {
		t.Fatalf("expected page 3, got %d", e.Query().Page)
	}

	e.SetTag(ctx, "go")
	if q := e.Query(); q.Page != 1 || q.Tag != "go" {
		t.Errorf("expected page 1 tag go, got %+v", q)
	}

	e.SetPage(ctx, 2)
	e.SetTag(ctx, "go")
	if e.Query().Page != 2 {
		t.Errorf("setting the same tag must keep the page, got %d", e.Query().Page)
	}

	// A direct Load that changes the filter also lands on page 1.
	e.Load(ctx, Query{Author: "alice", Page: 3})
	if e.Query().Page != 1 {
		t.Errorf("expected page 1 after filter change, got %d", e.Query().Page)
	}
}

func TestEmptyResult(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(3, "go")}
	e := New(gw, fakeSession(false))

	page, err := e.SetTag(context.Background(), "rust")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 0 || page.ShowPager() {
		t.Errorf("expected empty page without pager, got %+v", page)
	}
	if e.Status() != StatusEmpty {
		t.Errorf("expected StatusEmpty, got %s", e.Status())
	}
}

func TestFailureClearsPreviousPage(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(5, "go")}
	e := New(gw, fakeSession(false))
	ctx := context.Background()

	if _, err := e.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gw.err = &api.TransportError{Op: "GET /articles", Status: 500}

	if _, err := e.SetTag(ctx, "go"); !api.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if e.Status() != StatusFailed {
		t.Errorf("expected StatusFailed, got %s", e.Status())
	}
	if len(e.Page().Items) != 0 {
		t.Error("stale items must not survive a failed load")
	}
	if e.Page().ShowPager() {
		t.Error("pager must be hidden after a failure")
	}
}

func TestPersonalFeedRequiresSession(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(5, "go")}
	e := New(gw, fakeSession(false))
	ctx := context.Background()
	e.Reload(ctx)

	_, err := e.SetScope(ctx, Personal)
	if !errors.Is(err, ErrPersonalFeedRequiresSession) {
		t.Fatalf("expected ErrPersonalFeedRequiresSession, got %v", err)
	}
	if gw.feeds != 0 {
		t.Errorf("expected no feed call, got %d", gw.feeds)
	}
	if len(e.Page().Items) != 0 {
		t.Error("expected page cleared")
	}
}

func TestPersonalFeedWithSession(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, fakeSession(true))

	page, err := e.SetScope(context.Background(), Personal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.feeds != 1 || len(page.Items) != 1 || page.Items[0].Slug != "followed" {
		t.Errorf("unexpected page %+v (feed calls %d)", page, gw.feeds)
	}
}

func TestLastRequestWins(t *testing.T) {
	slow := make(chan struct{})
	gw := &fakeGateway{
		articles: append(makeArticles(3, "a"), makeArticles(2, "b")...),
		release:  map[string]chan struct{}{"a": slow},
	}
	e := New(gw, fakeSession(false))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := e.SetTag(ctx, "a")
		done <- err
	}()

	// Wait until the slow request is in flight.
	for gw.calls() == 0 {
	}

	page, err := e.SetTag(ctx, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected tag b results, got %d items", len(page.Items))
	}

	close(slow)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale for the superseded load, got %v", err)
	}
	if got := e.Page(); len(got.Items) != 2 || got.Items[0].Slug != "b-0" {
		t.Errorf("late response overwrote the page: %+v", got.Items)
	}
	if e.Query().Tag != "b" {
		t.Errorf("expected query tag b, got %q", e.Query().Tag)
	}
}

func TestResetDiscardsInFlight(t *testing.T) {
	slow := make(chan struct{})
	gw := &fakeGateway{
		articles: makeArticles(3, "a"),
		release:  map[string]chan struct{}{"a": slow},
	}
	e := New(gw, fakeSession(false))

	done := make(chan error, 1)
	go func() {
		_, err := e.SetTag(context.Background(), "a")
		done <- err
	}()
	for gw.calls() == 0 {
	}

	e.Reset()
	close(slow)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale, got %v", err)
	}
	if e.Status() != StatusIdle || len(e.Page().Items) != 0 {
		t.Errorf("expected idle empty engine, got %s with %d items", e.Status(), len(e.Page().Items))
	}
}

func TestReplaceArticle(t *testing.T) {
	gw := &fakeGateway{articles: makeArticles(3, "go")}
	e := New(gw, fakeSession(false))
	before, _ := e.Reload(context.Background())

	var notified []Page
	e.Subscribe(func(p Page) { notified = append(notified, p) })

	updated := before.Items[1]
	updated.Favorited = true
	updated.FavoritesCount = 1
	e.ReplaceArticle(updated)

	got, ok := e.Article(updated.Slug)
	if !ok || !got.Favorited || got.FavoritesCount != 1 {
		t.Errorf("expected replaced snapshot, got %+v", got)
	}
	if before.Items[1].Favorited {
		t.Error("previously returned page must not be mutated")
	}
	if len(notified) != 1 {
		t.Errorf("expected one notification, got %d", len(notified))
	}

	e.ReplaceArticle(model.Article{Slug: "missing"})
	if len(notified) != 1 {
		t.Error("replacing an absent article must not notify")
	}
}

func TestTags(t *testing.T) {
	e := New(&fakeGateway{}, fakeSession(false))
	tags, err := e.Tags(context.Background())
	if err != nil || len(tags) != 2 {
		t.Errorf("unexpected tags %v, err %v", tags, err)
	}
}

func TestLogoutDuringPersonalFetchDiscardsResult(t *testing.T) {
	gw := &fakeGateway{feedStarted: make(chan struct{}), feedRelease: make(chan struct{})}
	sess := &liveSession{authed: true}
	e := New(gw, sess)

	done := make(chan error, 1)
	go func() {
		_, err := e.SetScope(context.Background(), Personal)
		done <- err
	}()
	<-gw.feedStarted
	sess.logout()
	close(gw.feedRelease)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected in-flight personal fetch to be discarded, got %v", err)
	}
	if e.Status() != StatusFailed || len(e.Page().Items) != 0 {
		t.Errorf("expected empty failed page, got %s with %d items", e.Status(), len(e.Page().Items))
	}
	if !errors.Is(e.Err(), ErrPersonalFeedRequiresSession) {
		t.Errorf("expected ErrPersonalFeedRequiresSession, got %v", e.Err())
	}
}

func TestPersonalResultDroppedWhenSessionEndedQuietly(t *testing.T) {
	gw := &fakeGateway{feedStarted: make(chan struct{}), feedRelease: make(chan struct{})}
	sess := &quietSession{authed: true}
	e := New(gw, sess)

	done := make(chan error, 1)
	go func() {
		_, err := e.SetScope(context.Background(), Personal)
		done <- err
	}()
	<-gw.feedStarted
	sess.set(false)
	close(gw.feedRelease)

	if err := <-done; !errors.Is(err, ErrPersonalFeedRequiresSession) {
		t.Fatalf("expected ErrPersonalFeedRequiresSession, got %v", err)
	}
	if e.Status() != StatusFailed || len(e.Page().Items) != 0 {
		t.Errorf("expected empty failed page, got %s with %d items", e.Status(), len(e.Page().Items))
	}
}

func TestLogoutClearsShownPersonalPage(t *testing.T) {
	sess := &liveSession{authed: true}
	e := New(&fakeGateway{}, sess)
	if _, err := e.SetScope(context.Background(), Personal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen []Page
	e.Subscribe(func(p Page) { seen = append(seen, p) })
	sess.logout()

	if len(e.Page().Items) != 0 || e.Status() != StatusFailed {
		t.Errorf("expected personal page cleared, got %s with %d items", e.Status(), len(e.Page().Items))
	}
	if len(seen) != 1 || len(seen[0].Items) != 0 {
		t.Errorf("expected one empty page notification, got %+v", seen)
	}
}

func TestLogoutKeepsGlobalPage(t *testing.T) {
	sess := &liveSession{authed: true}
	e := New(&fakeGateway{articles: makeArticles(3, "go")}, sess)
	if _, err := e.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess.logout()
	if len(e.Page().Items) != 3 || e.Status() != StatusLoaded {
		t.Errorf("expected global page untouched, got %s with %d items", e.Status(), len(e.Page().Items))
	}
}
