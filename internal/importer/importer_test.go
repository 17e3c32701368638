package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/conduit/internal/editor"
	"github.com/TobiSchelling/conduit/internal/model"
)

type fakePublisher struct {
	drafts []editor.Draft
	failOn string
}

func (p *fakePublisher) Create(_ context.Context, d editor.Draft) (model.Article, error) {
	if d.Title == p.failOn {
		return model.Article{}, errors.New("rejected")
	}
	p.drafts = append(p.drafts, d)
	return model.Article{Slug: strings.ToLower(strings.ReplaceAll(d.Title, " ", "-")), Title: d.Title}, nil
}

const articleHTML = `<html><head><title>Long read</title></head><body>
<nav>Home | About</nav>
<article>
<h1>Long read</h1>
<p>%s</p>
<p>%s</p>
</article>
</body></html>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	paragraph := strings.Repeat("Readable paragraph text about writing Go services. ", 12)
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title>
<item>
  <title>First Post</title>
  <link>%[1]s/posts/1</link>
  <description>&lt;p&gt;The &lt;b&gt;first&lt;/b&gt; summary&lt;/p&gt;</description>
  <category>Go</category>
  <category>go</category>
  <pubDate>Tue, 05 Mar 2024 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Old Post</title>
  <link>%[1]s/posts/0</link>
  <description>Old summary</description>
  <pubDate>Mon, 01 Jan 2018 10:00:00 GMT</pubDate>
</item>
<item>
  <title></title>
  <link>%[1]s/posts/untitled</link>
</item>
</channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/posts/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, articleHTML, paragraph, paragraph)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestImportPublishesEntries(t *testing.T) {
	srv := newFeedServer(t)
	pub := &fakePublisher{}
	im := New(pub, 5*time.Second)

	r, err := im.Import(context.Background(), srv.URL+"/feed.xml", Options{Tags: []string{"imported"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Found != 3 || r.Published != 2 || r.Skipped != 1 || r.Failed != 0 {
		t.Errorf("unexpected result %+v", r)
	}

	first := pub.drafts[0]
	if first.Title != "First Post" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Description != "The first summary" {
		t.Errorf("expected stripped summary, got %q", first.Description)
	}
	if strings.Join(first.TagList, ",") != "go,imported" {
		t.Errorf("unexpected tags %v", first.TagList)
	}
	if !strings.Contains(first.Body, srv.URL+"/posts/1") {
		t.Errorf("expected source link in body, got %q", first.Body)
	}
}

func TestImportSince(t *testing.T) {
	srv := newFeedServer(t)
	pub := &fakePublisher{}
	im := New(pub, 5*time.Second)

	since := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	r, err := im.Import(context.Background(), srv.URL+"/feed.xml", Options{Since: since})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Published != 1 || pub.drafts[0].Title != "First Post" {
		t.Errorf("expected only the recent post, got %+v", r)
	}
}

func TestImportDryRun(t *testing.T) {
	srv := newFeedServer(t)
	pub := &fakePublisher{}
	im := New(pub, 5*time.Second)

	r, err := im.Import(context.Background(), srv.URL+"/feed.xml", Options{DryRun: true, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.drafts) != 0 {
		t.Error("dry run must not publish")
	}
	if r.Found != 1 || len(r.Drafts) != 1 {
		t.Errorf("expected one draft, got %+v", r)
	}
}

func TestImportCountsFailures(t *testing.T) {
	srv := newFeedServer(t)
	pub := &fakePublisher{failOn: "First Post"}
	im := New(pub, 5*time.Second)

	r, err := im.Import(context.Background(), srv.URL+"/feed.xml", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Failed != 1 || r.Published != 1 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestImportFullText(t *testing.T) {
	srv := newFeedServer(t)
	pub := &fakePublisher{}
	im := New(pub, 5*time.Second)

	if _, err := im.Import(context.Background(), srv.URL+"/feed.xml", Options{FullText: true, Limit: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pub.drafts[0].Body, "Readable paragraph text") {
		t.Errorf("expected extracted full text, got %q", pub.drafts[0].Body)
	}
}

func TestImportBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	im := New(&fakePublisher{}, time.Second)
	if _, err := im.Import(context.Background(), srv.URL, Options{}); err == nil {
		t.Error("expected error for unreadable feed")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello&nbsp;<b>world</b> &amp; more</p>")
	if got != "Hello world & more" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("unexpected %q", got)
	}
}
