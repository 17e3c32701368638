// Package stubserver is an in-memory implementation of the content service
// API, for local development and for tests of the client.
package stubserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TobiSchelling/conduit/internal/model"
)

const defaultLimit = 20

// Server serves the API from memory.
type Server struct {
	store  *store
	router chi.Router
	logReq bool
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.store.now = now }
}

// WithRequestLog logs every request.
func WithRequestLog(on bool) Option {
	return func(s *Server) { s.logReq = on }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{store: newStore(nil)}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.logReq {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Post("/users/login", s.handleLogin)
	r.Post("/users", s.handleRegister)
	r.Get("/user", s.requireAuth(s.handleCurrentUser))
	r.Put("/user", s.requireAuth(s.handleUpdateUser))

	r.Get("/profiles/{username}", s.handleProfile)
	r.Post("/profiles/{username}/follow", s.requireAuth(s.handleFollow(true)))
	r.Delete("/profiles/{username}/follow", s.requireAuth(s.handleFollow(false)))

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		r.Post("/", s.requireAuth(s.handleCreateArticle))
		r.Get("/feed", s.requireAuth(s.handleFeed))
		r.Get("/{slug}", s.handleGetArticle)
		r.Put("/{slug}", s.requireAuth(s.handleUpdateArticle))
		r.Delete("/{slug}", s.requireAuth(s.handleDeleteArticle))
		r.Post("/{slug}/favorite", s.requireAuth(s.handleFavorite(true)))
		r.Delete("/{slug}/favorite", s.requireAuth(s.handleFavorite(false)))
		r.Get("/{slug}/comments", s.handleListComments)
		r.Post("/{slug}/comments", s.requireAuth(s.handleAddComment))
		r.Delete("/{slug}/comments/{id}", s.requireAuth(s.handleDeleteComment))
	})

	r.Get("/tags", s.handleTags)

	s.router = r
}

// Serve starts the stub service on the given port, mounted under /api like
// the real service.
func Serve(port int, verbose bool) error {
	srv := New(WithRequestLog(verbose))
	root := chi.NewRouter()
	root.Mount("/api", srv.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Stub server listening on http://%s/api", addr)
	return http.ListenAndServe(addr, root)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, viewer, token string)

func (s *Server) requireAuth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		viewer := s.store.viewer(token)
		if token == "" || viewer == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"errors": fieldErrors{"token": {"is missing or invalid"}},
			})
			return
		}
		h(w, r, viewer, token)
	}
}

// optionalViewer resolves the viewer when a valid token is present.
func (s *Server) optionalViewer(r *http.Request) string {
	return s.store.viewer(bearer(r))
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	for _, scheme := range []string{"Bearer ", "Token "} {
		if strings.HasPrefix(h, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(h, scheme))
		}
	}
	return ""
}

// --- users ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User model.Credentials `json:"user"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, ok := s.store.login(req.User.Email, req.User.Password)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": fieldErrors{"email or password": {"is invalid"}},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User model.Registration `json:"user"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, errs := s.store.register(req.User.Email, req.User.Username, req.User.Password)
	if errs != nil {
		writeErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request, viewer, token string) {
	u, ok := s.store.currentUser(viewer, token)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": fieldErrors{"user": {"not found"}}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, viewer, token string) {
	var req struct {
		User model.UserUpdate `json:"user"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, errs := s.store.updateUser(viewer, token, req.User)
	if errs != nil {
		writeErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// --- profiles ---

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.profile(chi.URLParam(r, "username"), s.optionalViewer(r))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleFollow(follow bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, viewer, _ string) {
		p, ok := s.store.setFollow(viewer, chi.URLParam(r, "username"), follow)
		if !ok {
			writeNotFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})
	}
}

// --- articles ---

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := listFilter{
		tag:       q.Get("tag"),
		author:    q.Get("author"),
		favorited: q.Get("favorited"),
	}
	f.limit, f.offset = paging(q.Get("limit"), q.Get("offset"))
	s.writeList(w, f, s.optionalViewer(r))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	q := r.URL.Query()
	f := listFilter{feedOf: viewer}
	f.limit, f.offset = paging(q.Get("limit"), q.Get("offset"))
	s.writeList(w, f, viewer)
}

func (s *Server) writeList(w http.ResponseWriter, f listFilter, viewer string) {
	articles, total := s.store.list(f, viewer)
	writeJSON(w, http.StatusOK, model.ArticleList{Articles: articles, ArticlesCount: total})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := s.store.get(chi.URLParam(r, "slug"), s.optionalViewer(r))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": a})
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	var req struct {
		Article model.NewArticle `json:"article"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, errs := s.store.create(viewer, req.Article)
	if errs != nil {
		writeErrors(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"article": a})
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	var req struct {
		Article model.ArticleUpdate `json:"article"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.store.update(viewer, chi.URLParam(r, "slug"), req.Article)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": a})
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	if err := s.store.remove(viewer, chi.URLParam(r, "slug")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorite(fav bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, viewer, _ string) {
		a, ok := s.store.setFavorite(viewer, chi.URLParam(r, "slug"), fav)
		if !ok {
			writeNotFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"article": a})
	}
}

// --- comments ---

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	list, ok := s.store.listComments(chi.URLParam(r, "slug"), s.optionalViewer(r))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": list})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	var req struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Comment.Body) == "" {
		writeErrors(w, fieldErrors{"body": {"can't be blank"}})
		return
	}
	c, err := s.store.addComment(viewer, chi.URLParam(r, "slug"), req.Comment.Body)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": c})
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, viewer, _ string) {
	if err := s.store.removeComment(viewer, chi.URLParam(r, "slug"), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": s.store.tags()})
}

// --- helpers ---

func paging(limitRaw, offsetRaw string) (int, int) {
	limit, err := strconv.Atoi(limitRaw)
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(offsetRaw)
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrors(w, fieldErrors{"body": {"is not valid JSON"}})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("stubserver: encoding response: %v", err)
	}
}

func writeErrors(w http.ResponseWriter, errs fieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"errors": fieldErrors{"resource": {"not found"}}})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch err {
	case errNotFound:
		writeNotFound(w)
	case errForbidden:
		writeJSON(w, http.StatusForbidden, map[string]any{"errors": fieldErrors{"request": {"is not permitted"}}})
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
