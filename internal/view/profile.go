package view

import (
	"context"
	"errors"
	"sync"

	"github.com/TobiSchelling/conduit/internal/feed"
	"github.com/TobiSchelling/conduit/internal/model"
)

// Tab selects which articles a profile lists.
type Tab int

const (
	// AuthoredTab lists articles written by the profile's user.
	AuthoredTab Tab = iota
	// FavoritesTab lists articles the profile's user favorited.
	FavoritesTab
)

func (t Tab) String() string {
	if t == FavoritesTab {
		return "favorites"
	}
	return "articles"
}

// ProfileGateway fetches profiles.
type ProfileGateway interface {
	GetProfile(ctx context.Context, username string) (model.Profile, error)
}

// ProfileView holds one profile and drives a feed engine for its tabs.
type ProfileView struct {
	gw     ProfileGateway
	engine *feed.Engine

	mu       sync.Mutex
	username string
	profile  model.Profile
	loaded   bool
	tab      Tab
	gen      uint64
}

// NewProfileView creates a view whose tabs are listed through engine.
func NewProfileView(gw ProfileGateway, engine *feed.Engine) *ProfileView {
	return &ProfileView{gw: gw, engine: engine}
}

// Load fetches the profile and then the first page of its authored articles.
func (v *ProfileView) Load(ctx context.Context, username string) (model.Profile, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.username = username
	v.loaded = false
	v.profile = model.Profile{}
	v.tab = AuthoredTab
	v.mu.Unlock()

	p, err := v.gw.GetProfile(ctx, username)

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return model.Profile{}, ErrStale
	}
	if err != nil {
		v.mu.Unlock()
		v.engine.Reset()
		return model.Profile{}, err
	}
	v.profile = p
	v.loaded = true
	v.mu.Unlock()

	if _, err := v.engine.Load(ctx, tabQuery(AuthoredTab, username)); err != nil && !errors.Is(err, feed.ErrStale) {
		return p, err
	}
	return p, nil
}

// SelectTab switches between authored and favorited articles, back on page 1.
func (v *ProfileView) SelectTab(ctx context.Context, tab Tab) (feed.Page, error) {
	v.mu.Lock()
	username := v.username
	v.tab = tab
	v.mu.Unlock()
	return v.engine.Load(ctx, tabQuery(tab, username))
}

// SetPage moves to another page of the current tab.
func (v *ProfileView) SetPage(ctx context.Context, page int) (feed.Page, error) {
	return v.engine.SetPage(ctx, page)
}

// Tab returns the selected tab.
func (v *ProfileView) Tab() Tab {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tab
}

// Feed exposes the engine holding the tab's articles, for favorite toggles.
func (v *ProfileView) Feed() *feed.Engine {
	return v.engine
}

// Current returns the loaded profile.
func (v *ProfileView) Current() (model.Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile, v.loaded
}

// IsOwn reports whether the profile belongs to viewer.
func (v *ProfileView) IsOwn(viewer string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && viewer != "" && v.profile.Username == viewer
}

// Close tears the view down, including any in-flight feed load.
func (v *ProfileView) Close() {
	v.mu.Lock()
	v.gen++
	v.username = ""
	v.loaded = false
	v.profile = model.Profile{}
	v.mu.Unlock()
	v.engine.Reset()
}

func (v *ProfileView) Profile(username string) (model.Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded || v.profile.Username != username {
		return model.Profile{}, false
	}
	return v.profile, true
}

func (v *ProfileView) ReplaceProfile(p model.Profile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded && v.profile.Username == p.Username {
		v.profile = p
	}
}

func tabQuery(tab Tab, username string) feed.Query {
	q := feed.Query{Scope: feed.Global, Page: 1}
	if tab == FavoritesTab {
		q.FavoritedBy = username
	} else {
		q.Author = username
	}
	return q
}
