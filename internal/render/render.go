// Package render formats articles, profiles and comments for the terminal
// and converts article bodies from markdown to HTML.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/conduit/internal/model"
)

// DefaultImage is shown for users without an avatar.
const DefaultImage = "https://static.productionready.io/images/smiley-cyrus.jpg"

var md = goldmark.New()

// Markdown converts an article body to HTML. If conversion fails the body is
// returned escaped.
func Markdown(body string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return htmlEscape(body)
	}
	return buf.String()
}

// Date formats t as "January 2, 2006".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// Relative formats t relative to now, e.g. "3 days ago".
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Image returns the avatar URL or the default one.
func Image(url string) string {
	if url == "" {
		return DefaultImage
	}
	return url
}

// ArticleSummary writes the one-article block used in feed listings.
func ArticleSummary(w io.Writer, a model.Article, now time.Time) {
	heart := "♡"
	if a.Favorited {
		heart = "♥"
	}
	fmt.Fprintf(w, "%s  [%s]\n", a.Title, a.Slug)
	if a.Description != "" {
		fmt.Fprintf(w, "  %s\n", a.Description)
	}
	fmt.Fprintf(w, "  by %s, %s (%s)  %s %s\n",
		a.Author.Username, Date(a.CreatedAt), Relative(a.CreatedAt, now), heart, Count(a.FavoritesCount))
	if len(a.TagList) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(a.TagList, ", "))
	}
}

// ArticleDetail writes a full article. With html the body is converted from
// markdown; otherwise it is printed as written.
func ArticleDetail(w io.Writer, a model.Article, html bool) {
	fmt.Fprintf(w, "# %s\n\n", a.Title)
	following := ""
	if a.Author.Following {
		following = " (following)"
	}
	fmt.Fprintf(w, "%s%s, %s  ♥ %s\n\n", a.Author.Username, following, Date(a.CreatedAt), Count(a.FavoritesCount))
	if html {
		fmt.Fprintln(w, Markdown(a.Body))
	} else {
		fmt.Fprintln(w, a.Body)
	}
	if len(a.TagList) > 0 {
		fmt.Fprintf(w, "\ntags: %s\n", strings.Join(a.TagList, ", "))
	}
}

// Comment writes one comment.
func Comment(w io.Writer, c model.Comment, deletable bool) {
	marker := ""
	if deletable {
		marker = "  (yours)"
	}
	fmt.Fprintf(w, "[%s] %s, %s%s\n", c.ID, c.Author.Username, Date(c.CreatedAt), marker)
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(strings.TrimSpace(c.Body), "\n", "\n  "))
}

// Profile writes a profile header.
func Profile(w io.Writer, p model.Profile) {
	fmt.Fprintf(w, "%s\n", p.Username)
	if p.Bio != "" {
		fmt.Fprintf(w, "  %s\n", p.Bio)
	}
	fmt.Fprintf(w, "  image: %s\n", Image(p.Image))
	if p.Following {
		fmt.Fprintln(w, "  following")
	}
}

// Pager writes "page x of y" when there is more than one page.
func Pager(w io.Writer, page, totalPages int) {
	if totalPages <= 1 {
		return
	}
	fmt.Fprintf(w, "page %d of %d\n", page, totalPages)
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")
	return r.Replace(s)
}
