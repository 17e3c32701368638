package feed

import "github.com/TobiSchelling/conduit/internal/model"

// PageSize is the fixed number of articles per page.
const PageSize = 10

// Scope selects between the global listing and the personal feed.
type Scope int

const (
	Global Scope = iota
	// Personal lists articles by followed authors and needs a session.
	Personal
)

func (s Scope) String() string {
	if s == Personal {
		return "personal"
	}
	return "global"
}

// Query describes one page of a filtered feed.
type Query struct {
	Scope       Scope
	Tag         string
	Author      string
	FavoritedBy string
	Page        int
}

// Offset is the number of articles skipped before this page.
func (q Query) Offset() int {
	return (q.normalized().Page - 1) * PageSize
}

// SameFilter reports whether q and o differ only by page.
func (q Query) SameFilter(o Query) bool {
	return q.Scope == o.Scope && q.Tag == o.Tag && q.Author == o.Author && q.FavoritedBy == o.FavoritedBy
}

// WithScope returns q with a new scope, back on page 1 if it changed.
func (q Query) WithScope(s Scope) Query {
	next := q
	next.Scope = s
	return next.resetIfFilterChanged(q)
}

// WithTag returns q filtered by tag, back on page 1 if it changed.
func (q Query) WithTag(tag string) Query {
	next := q
	next.Tag = tag
	return next.resetIfFilterChanged(q)
}

// WithAuthor returns q filtered by author, back on page 1 if it changed.
func (q Query) WithAuthor(username string) Query {
	next := q
	next.Author = username
	return next.resetIfFilterChanged(q)
}

// WithFavoritedBy returns q filtered by who favorited, back on page 1 if it changed.
func (q Query) WithFavoritedBy(username string) Query {
	next := q
	next.FavoritedBy = username
	return next.resetIfFilterChanged(q)
}

// WithPage returns q on another page of the same filter.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q.normalized()
}

func (q Query) resetIfFilterChanged(prev Query) Query {
	if !q.SameFilter(prev) {
		q.Page = 1
	}
	return q.normalized()
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

func (q Query) listParams() model.ListParams {
	return model.ListParams{
		Tag:       q.Tag,
		Author:    q.Author,
		Favorited: q.FavoritedBy,
		Limit:     PageSize,
		Offset:    q.Offset(),
	}
}

// Page is one page of articles plus the total size of the listing.
type Page struct {
	Items      []model.Article
	TotalCount int
}

// TotalPages is ceil(TotalCount / PageSize).
func (p Page) TotalPages() int {
	return TotalPages(p.TotalCount)
}

// ShowPager reports whether a pager is worth rendering.
func (p Page) ShowPager() bool {
	return ShowPager(p.TotalCount)
}

// TotalPages is ceil(totalCount / PageSize); 0 for an empty listing.
func TotalPages(totalCount int) int {
	if totalCount <= 0 {
		return 0
	}
	return (totalCount + PageSize - 1) / PageSize
}

// ShowPager is false for one page or less.
func ShowPager(totalCount int) bool {
	return TotalPages(totalCount) > 1
}

func (p Page) clone() Page {
	items := make([]model.Article, len(p.Items))
	copy(items, p.Items)
	return Page{Items: items, TotalCount: p.TotalCount}
}
