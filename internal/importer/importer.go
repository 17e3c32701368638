// Package importer cross-posts entries of an RSS or Atom feed as articles.
package importer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/conduit/internal/editor"
	"github.com/TobiSchelling/conduit/internal/model"
)

const (
	defaultLimit   = 20
	maxDescription = 200
	userAgent      = "conduit-importer/1.0"
)

// Publisher creates articles from drafts.
type Publisher interface {
	Create(ctx context.Context, d editor.Draft) (model.Article, error)
}

// Options controls one import run.
type Options struct {
	Limit    int
	Since    time.Time
	Tags     []string
	FullText bool
	DryRun   bool
}

// Result summarizes an import run.
type Result struct {
	Found     int
	Published int
	Skipped   int
	Failed    int
	Drafts    []editor.Draft
	Articles  []model.Article
}

// Importer reads feeds and publishes their entries.
type Importer struct {
	parser  *gofeed.Parser
	fetcher *fetcher
	pub     Publisher
}

// New creates an importer that publishes through pub.
func New(pub Publisher, timeout time.Duration) *Importer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Importer{
		parser:  parser,
		fetcher: &fetcher{client: client},
		pub:     pub,
	}
}

// Import parses feedURL and publishes up to opts.Limit entries. A feed that
// cannot be read is an error; failures of single entries are logged and
// counted.
func (im *Importer) Import(ctx context.Context, feedURL string, opts Options) (*Result, error) {
	feed, err := im.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	r := &Result{}
	for _, item := range feed.Items {
		if r.Found >= limit {
			break
		}
		r.Found++

		if !opts.Since.IsZero() {
			if pub := published(item); pub != nil && pub.Before(opts.Since) {
				r.Skipped++
				continue
			}
		}

		d, link, ok := itemDraft(item)
		if !ok {
			r.Skipped++
			continue
		}
		for _, tag := range opts.Tags {
			d.AddTag(tag)
		}

		if opts.FullText && link != "" {
			text, err := im.fetcher.fullText(ctx, link)
			if err != nil {
				log.Printf("importer: full text for %s: %v", link, err)
			} else if text != "" {
				d.Body = text
			}
		}
		if link != "" {
			d.Body = strings.TrimSpace(d.Body) + "\n\nOriginally published at " + link
		}

		if opts.DryRun {
			r.Drafts = append(r.Drafts, d)
			continue
		}

		a, err := im.pub.Create(ctx, d)
		if err != nil {
			log.Printf("importer: publishing %q: %v", d.Title, err)
			r.Failed++
			continue
		}
		r.Published++
		r.Articles = append(r.Articles, a)
		log.Printf("importer: published %q as %s", d.Title, a.Slug)
	}

	log.Printf("importer: %d found, %d published, %d skipped, %d failed", r.Found, r.Published, r.Skipped, r.Failed)
	return r, nil
}

func itemDraft(item *gofeed.Item) (editor.Draft, string, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return editor.Draft{}, "", false
	}
	link := item.Link
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = item.GUID
	}

	summary := stripHTML(item.Description)
	body := stripHTML(item.Content)
	if body == "" {
		body = summary
	}
	if summary == "" {
		summary = body
	}
	if summary == "" {
		summary = title
	}
	if body == "" {
		body = summary
	}

	d := editor.Draft{
		Title:       title,
		Description: truncate(summary, maxDescription),
		Body:        body,
	}
	for _, c := range item.Categories {
		d.AddTag(strings.ToLower(c))
	}
	return d, link, true
}

func published(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(b.String())
	return strings.Join(strings.Fields(s), " ")
}
