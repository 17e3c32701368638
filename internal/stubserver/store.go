package stubserver

import (
	"errors"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/conduit/internal/model"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
)

type fieldErrors map[string][]string

type account struct {
	model.User
	password string
}

type article struct {
	model.Article
	favoritedBy map[string]bool
}

// store is the in-memory state of the stub service.
type store struct {
	mu        sync.Mutex
	now       func() time.Time
	accounts  map[string]*account // by username
	tokens    map[string]string   // token -> username
	follows   map[string]map[string]bool
	articles  []*article // newest first
	comments  map[string][]model.Comment
	commentID int
}

func newStore(now func() time.Time) *store {
	if now == nil {
		now = time.Now
	}
	return &store{
		now:      now,
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		follows:  make(map[string]map[string]bool),
		comments: make(map[string][]model.Comment),
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *store) register(email, username, password string) (model.User, fieldErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := fieldErrors{}
	if strings.TrimSpace(email) == "" {
		errs["email"] = append(errs["email"], "can't be blank")
	}
	if strings.TrimSpace(username) == "" {
		errs["username"] = append(errs["username"], "can't be blank")
	}
	if password == "" {
		errs["password"] = append(errs["password"], "can't be blank")
	}
	if _, taken := s.accounts[username]; taken && username != "" {
		errs["username"] = append(errs["username"], "has already been taken")
	}
	if s.byEmailLocked(email) != nil {
		errs["email"] = append(errs["email"], "has already been taken")
	}
	if len(errs) > 0 {
		return model.User{}, errs
	}

	acc := &account{
		User:     model.User{ID: uuid.NewString(), Email: email, Username: username},
		password: password,
	}
	s.accounts[username] = acc
	return s.issueLocked(acc), nil
}

func (s *store) login(email, password string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.byEmailLocked(email)
	if acc == nil || acc.password != password {
		return model.User{}, false
	}
	return s.issueLocked(acc), true
}

func (s *store) issueLocked(acc *account) model.User {
	token := newToken()
	s.tokens[token] = acc.Username
	u := acc.User
	u.Token = token
	return u
}

func (s *store) byEmailLocked(email string) *account {
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.Email, email) {
			return acc
		}
	}
	return nil
}

// viewer resolves a token to a username; "" when unknown.
func (s *store) viewer(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func (s *store) currentUser(username, token string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return model.User{}, false
	}
	u := acc.User
	u.Token = token
	return u, true
}

func (s *store) updateUser(username, token string, upd model.UserUpdate) (model.User, fieldErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return model.User{}, fieldErrors{"user": {"not found"}}
	}

	if upd.Username != nil && *upd.Username != username {
		if _, taken := s.accounts[*upd.Username]; taken {
			return model.User{}, fieldErrors{"username": {"has already been taken"}}
		}
	}
	if upd.Email != nil {
		if other := s.byEmailLocked(*upd.Email); other != nil && other != acc {
			return model.User{}, fieldErrors{"email": {"has already been taken"}}
		}
		acc.Email = *upd.Email
	}
	if upd.Bio != nil {
		acc.Bio = *upd.Bio
	}
	if upd.Image != nil {
		acc.Image = *upd.Image
	}
	if upd.Password != nil && *upd.Password != "" {
		acc.password = *upd.Password
	}
	if upd.Username != nil && *upd.Username != username {
		s.renameLocked(acc, username, *upd.Username)
	}

	u := acc.User
	u.Token = token
	return u, nil
}

func (s *store) renameLocked(acc *account, from, to string) {
	delete(s.accounts, from)
	acc.Username = to
	s.accounts[to] = acc
	for tok, name := range s.tokens {
		if name == from {
			s.tokens[tok] = to
		}
	}
	if f, ok := s.follows[from]; ok {
		delete(s.follows, from)
		s.follows[to] = f
	}
	for _, f := range s.follows {
		if f[from] {
			delete(f, from)
			f[to] = true
		}
	}
	for _, a := range s.articles {
		if a.Author.Username == from {
			a.Author.Username = to
		}
		if a.favoritedBy[from] {
			delete(a.favoritedBy, from)
			a.favoritedBy[to] = true
		}
	}
	for slug, list := range s.comments {
		for i := range list {
			if list[i].Author.Username == from {
				s.comments[slug][i].Author.Username = to
			}
		}
	}
}

func (s *store) profileLocked(username, viewer string) (model.Profile, bool) {
	acc, ok := s.accounts[username]
	if !ok {
		return model.Profile{}, false
	}
	p := acc.User.Profile()
	p.Following = viewer != "" && s.follows[viewer][username]
	return p, true
}

func (s *store) profile(username, viewer string) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileLocked(username, viewer)
}

func (s *store) setFollow(viewer, username string, follow bool) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return model.Profile{}, false
	}
	if s.follows[viewer] == nil {
		s.follows[viewer] = make(map[string]bool)
	}
	if follow {
		s.follows[viewer][username] = true
	} else {
		delete(s.follows[viewer], username)
	}
	return s.profileLocked(username, viewer)
}

func (s *store) viewLocked(a *article, viewer string) model.Article {
	out := a.Article
	out.TagList = append([]string{}, a.TagList...)
	out.FavoritesCount = len(a.favoritedBy)
	out.Favorited = viewer != "" && a.favoritedBy[viewer]
	if p, ok := s.profileLocked(a.Author.Username, viewer); ok {
		out.Author = p
	}
	return out
}

func (s *store) findLocked(slug string) *article {
	for _, a := range s.articles {
		if a.Slug == slug {
			return a
		}
	}
	return nil
}

type listFilter struct {
	tag, author, favorited string
	feedOf                 string
	limit, offset          int
}

func (s *store) list(f listFilter, viewer string) ([]model.Article, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*article
	for _, a := range s.articles {
		if f.tag != "" && !slices.Contains(a.TagList, f.tag) {
			continue
		}
		if f.author != "" && a.Author.Username != f.author {
			continue
		}
		if f.favorited != "" && !a.favoritedBy[f.favorited] {
			continue
		}
		if f.feedOf != "" && !s.follows[f.feedOf][a.Author.Username] {
			continue
		}
		matched = append(matched, a)
	}

	total := len(matched)
	if f.offset > total {
		f.offset = total
	}
	end := total
	if f.limit > 0 && f.offset+f.limit < end {
		end = f.offset + f.limit
	}

	out := make([]model.Article, 0, end-f.offset)
	for _, a := range matched[f.offset:end] {
		out = append(out, s.viewLocked(a, viewer))
	}
	return out, total
}

func (s *store) get(slug, viewer string) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLocked(slug)
	if a == nil {
		return model.Article{}, false
	}
	return s.viewLocked(a, viewer), true
}

func (s *store) create(viewer string, in model.NewArticle) (model.Article, fieldErrors) {
	errs := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = []string{"can't be blank"}
	}
	if strings.TrimSpace(in.Description) == "" {
		errs["description"] = []string{"can't be blank"}
	}
	if strings.TrimSpace(in.Body) == "" {
		errs["body"] = []string{"can't be blank"}
	}
	if len(errs) > 0 {
		return model.Article{}, errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a := &article{
		Article: model.Article{
			ID:          uuid.NewString(),
			Slug:        s.uniqueSlugLocked(in.Title, ""),
			Title:       in.Title,
			Description: in.Description,
			Body:        in.Body,
			TagList:     append([]string{}, in.TagList...),
			CreatedAt:   now,
			UpdatedAt:   now,
			Author:      model.Profile{Username: viewer},
		},
		favoritedBy: make(map[string]bool),
	}
	s.articles = append([]*article{a}, s.articles...)
	return s.viewLocked(a, viewer), nil
}

func (s *store) update(viewer, slug string, upd model.ArticleUpdate) (model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLocked(slug)
	if a == nil {
		return model.Article{}, errNotFound
	}
	if a.Author.Username != viewer {
		return model.Article{}, errForbidden
	}
	if upd.Title != nil && *upd.Title != a.Title {
		old := a.Slug
		a.Title = *upd.Title
		a.Slug = s.uniqueSlugLocked(a.Title, old)
		if c, ok := s.comments[old]; ok {
			delete(s.comments, old)
			s.comments[a.Slug] = c
		}
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Body != nil {
		a.Body = *upd.Body
	}
	if upd.TagList != nil {
		a.TagList = append([]string{}, (*upd.TagList)...)
	}
	a.UpdatedAt = s.now().UTC()
	return s.viewLocked(a, viewer), nil
}

func (s *store) remove(viewer, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.articles {
		if a.Slug != slug {
			continue
		}
		if a.Author.Username != viewer {
			return errForbidden
		}
		s.articles = append(s.articles[:i], s.articles[i+1:]...)
		delete(s.comments, slug)
		return nil
	}
	return errNotFound
}

func (s *store) setFavorite(viewer, slug string, fav bool) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLocked(slug)
	if a == nil {
		return model.Article{}, false
	}
	if fav {
		a.favoritedBy[viewer] = true
	} else {
		delete(a.favoritedBy, viewer)
	}
	return s.viewLocked(a, viewer), true
}

func (s *store) tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, a := range s.articles {
		for _, t := range a.TagList {
			counts[t]++
		}
	}
	out := make([]string, 0, len(counts))
	for t := range counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func (s *store) listComments(slug, viewer string) ([]model.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(slug) == nil {
		return nil, false
	}
	list := s.comments[slug]
	out := make([]model.Comment, 0, len(list))
	for _, c := range list {
		if p, ok := s.profileLocked(c.Author.Username, viewer); ok {
			c.Author = p
		}
		out = append(out, c)
	}
	return out, true
}

func (s *store) addComment(viewer, slug, body string) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(slug) == nil {
		return model.Comment{}, errNotFound
	}
	s.commentID++
	now := s.now().UTC()
	c := model.Comment{
		ID:        strconv.Itoa(s.commentID),
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p, ok := s.profileLocked(viewer, viewer); ok {
		c.Author = p
	}
	s.comments[slug] = append([]model.Comment{c}, s.comments[slug]...)
	return c, nil
}

func (s *store) removeComment(viewer, slug, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.comments[slug]
	for i, c := range list {
		if c.ID != id {
			continue
		}
		if c.Author.Username != viewer {
			return errForbidden
		}
		s.comments[slug] = append(list[:i], list[i+1:]...)
		return nil
	}
	return errNotFound
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "article"
	}
	return s
}

// uniqueSlugLocked derives a slug from title, suffixing it when another
// article already uses it. keep is the article's current slug, if any.
func (s *store) uniqueSlugLocked(title, keep string) string {
	base := slugify(title)
	slug := base
	for i := 2; ; i++ {
		if slug == keep || s.findLocked(slug) == nil {
			return slug
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}
