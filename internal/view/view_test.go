package view

import (
	"context"
	"errors"
	"testing"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/feed"
	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/mutation"
)

type fakeGateway struct {
	articles map[string]model.Article
	profiles map[string]model.Profile
	lists    []model.ListParams
	started  chan struct{}
	block    chan struct{}
}

func (f *fakeGateway) GetArticle(_ context.Context, slug string) (model.Article, error) {
	if f.block != nil && slug == "slow" {
		f.started <- struct{}{}
		<-f.block
	}
	a, ok := f.articles[slug]
	if !ok {
		return model.Article{}, &api.NotFoundError{Path: "/articles/" + slug}
	}
	return a, nil
}

func (f *fakeGateway) GetProfile(_ context.Context, username string) (model.Profile, error) {
	p, ok := f.profiles[username]
	if !ok {
		return model.Profile{}, &api.NotFoundError{Path: "/profiles/" + username}
	}
	return p, nil
}

func (f *fakeGateway) ListArticles(_ context.Context, p model.ListParams) (model.ArticleList, error) {
	f.lists = append(f.lists, p)
	return model.ArticleList{Articles: []model.Article{{Slug: "x"}}, ArticlesCount: 1}, nil
}

func (f *fakeGateway) FeedArticles(context.Context, int, int) (model.ArticleList, error) {
	return model.ArticleList{}, nil
}

func (f *fakeGateway) Tags(context.Context) ([]string, error) { return nil, nil }

func (f *fakeGateway) FavoriteArticle(context.Context, string) (model.Article, error) {
	return model.Article{}, errors.New("unused")
}

func (f *fakeGateway) UnfavoriteArticle(context.Context, string) (model.Article, error) {
	return model.Article{}, errors.New("unused")
}

func (f *fakeGateway) DeleteArticle(context.Context, string) error { return nil }

func (f *fakeGateway) Follow(_ context.Context, username string) (model.Profile, error) {
	return model.Profile{Username: username, Bio: "server bio", Following: true}, nil
}

func (f *fakeGateway) Unfollow(_ context.Context, username string) (model.Profile, error) {
	return model.Profile{Username: username}, nil
}

type fakeSession struct{}

func (fakeSession) IsAuthenticated() bool { return true }
func (fakeSession) HandleAuthError(error)  {}

func newGateway() *fakeGateway {
	return &fakeGateway{
		articles: map[string]model.Article{
			"hello": {Slug: "hello", Title: "Hello", Author: model.Profile{Username: "alice"}},
			"fast":  {Slug: "fast", Title: "Fast"},
			"slow":  {Slug: "slow", Title: "Slow"},
		},
		profiles: map[string]model.Profile{
			"alice": {Username: "alice", Bio: "writer"},
		},
	}
}

func TestArticleDetailLoad(t *testing.T) {
	v := NewArticleDetail(newGateway())
	a, err := v.Load(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "Hello" {
		t.Errorf("unexpected article %+v", a)
	}
	if !v.IsOwn("alice") || v.IsOwn("bob") || v.IsOwn("") {
		t.Error("unexpected IsOwn result")
	}
}

func TestArticleDetailNotFound(t *testing.T) {
	v := NewArticleDetail(newGateway())
	_, err := v.Load(context.Background(), "missing")
	if !api.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, ok := v.Current(); ok {
		t.Error("expected nothing loaded")
	}
}

func TestArticleDetailDiscardsStaleSlug(t *testing.T) {
	gw := newGateway()
	gw.started = make(chan struct{})
	gw.block = make(chan struct{})
	v := NewArticleDetail(gw)

	done := make(chan error, 1)
	go func() {
		_, err := v.Load(context.Background(), "slow")
		done <- err
	}()
	<-gw.started

	if _, err := v.Load(context.Background(), "fast"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(gw.block)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale, got %v", err)
	}
	if a, _ := v.Current(); a.Slug != "fast" {
		t.Errorf("expected fast article, got %q", a.Slug)
	}
}

func TestArticleDetailCloseDiscardsInFlight(t *testing.T) {
	gw := newGateway()
	gw.started = make(chan struct{})
	gw.block = make(chan struct{})
	v := NewArticleDetail(gw)

	done := make(chan error, 1)
	go func() {
		_, err := v.Load(context.Background(), "slow")
		done <- err
	}()
	<-gw.started
	v.Close()
	close(gw.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale, got %v", err)
	}
	if _, ok := v.Current(); ok {
		t.Error("closed view must stay empty")
	}
}

func TestFollowFromArticleDetailUpdatesOnlyAuthor(t *testing.T) {
	gw := newGateway()
	v := NewArticleDetail(gw)
	if _, err := v.Load(context.Background(), "hello"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	c := mutation.New(gw, fakeSession{})

	if _, err := c.ToggleFollow(context.Background(), v, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := v.Current()
	if !a.Author.Following || a.Author.Bio != "server bio" {
		t.Errorf("expected embedded author updated, got %+v", a.Author)
	}
	if a.Title != "Hello" || a.Slug != "hello" {
		t.Errorf("article fields must be untouched, got %+v", a)
	}
}

func TestReplaceIgnoresOtherIdentifiers(t *testing.T) {
	v := NewArticleDetail(newGateway())
	v.Load(context.Background(), "hello")

	v.ReplaceArticle(model.Article{Slug: "other", Title: "Other"})
	v.ReplaceProfile(model.Profile{Username: "bob", Following: true})

	a, _ := v.Current()
	if a.Title != "Hello" || a.Author.Following {
		t.Errorf("unexpected change %+v", a)
	}
}

func TestProfileViewTabs(t *testing.T) {
	gw := newGateway()
	engine := feed.New(gw, fakeSession{})
	v := NewProfileView(gw, engine)
	ctx := context.Background()

	p, err := v.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Bio != "writer" || !v.IsOwn("alice") {
		t.Errorf("unexpected profile %+v", p)
	}
	if len(gw.lists) != 1 || gw.lists[0].Author != "alice" {
		t.Fatalf("expected authored listing, got %+v", gw.lists)
	}

	v.SetPage(ctx, 2)
	if _, err := v.SelectTab(ctx, FavoritesTab); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := gw.lists[len(gw.lists)-1]
	if last.Favorited != "alice" || last.Author != "" || last.Offset != 0 {
		t.Errorf("expected favorites page 1, got %+v", last)
	}
	if v.Tab() != FavoritesTab {
		t.Errorf("expected favorites tab, got %s", v.Tab())
	}
}

func TestProfileViewNotFound(t *testing.T) {
	gw := newGateway()
	v := NewProfileView(gw, feed.New(gw, fakeSession{}))
	if _, err := v.Load(context.Background(), "ghost"); !api.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(gw.lists) != 0 {
		t.Error("no listing expected for a missing profile")
	}
}

func TestFollowFromProfileView(t *testing.T) {
	gw := newGateway()
	v := NewProfileView(gw, feed.New(gw, fakeSession{}))
	v.Load(context.Background(), "alice")

	c := mutation.New(gw, fakeSession{})
	if _, err := c.ToggleFollow(context.Background(), v, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := v.Current(); !p.Following {
		t.Error("expected following")
	}
}
