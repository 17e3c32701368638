// Package session owns the authentication lifecycle and the current user's
// profile. It is the only writer of the session token.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/TobiSchelling/conduit/internal/api"
	"github.com/TobiSchelling/conduit/internal/model"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded means a logout or another sign-in happened while the
	// call was in flight; its result was not applied.
	ErrSuperseded = errors.New("session changed before the response arrived")
)

// State is the authentication state.
type State int

const (
	// Unknown holds until the stored credential has been checked once.
	Unknown State = iota
	Unauthenticated
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "invalid"
}

// Gateway is the subset of the API the session needs.
type Gateway interface {
	Login(ctx context.Context, creds model.Credentials) (model.User, error)
	Register(ctx context.Context, reg model.Registration) (model.User, error)
	CurrentUser(ctx context.Context) (model.User, error)
	UpdateUser(ctx context.Context, upd model.UserUpdate) (model.User, error)
}

// TokenStore persists the opaque session token between runs.
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

// Manager is the session state machine. It is safe for concurrent use.
type Manager struct {
	gw    Gateway
	store TokenStore

	mu        sync.Mutex
	state     State
	token     string
	user      model.User
	gen       uint64
	listeners map[int]func(State)
	nextID    int

	rehydrate    sync.Once
	rehydrateErr error
}

// New creates a manager in the Unknown state. Call Rehydrate once at startup.
func New(gw Gateway, store TokenStore) *Manager {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Manager{
		gw:        gw,
		store:     store,
		state:     Unknown,
		listeners: make(map[int]func(State)),
	}
}

// Rehydrate checks the stored credential against the server. Only the first
// call does any work; later calls return the first call's error.
func (m *Manager) Rehydrate(ctx context.Context) error {
	m.rehydrate.Do(func() {
		m.rehydrateErr = m.doRehydrate(ctx)
	})
	return m.rehydrateErr
}

func (m *Manager) doRehydrate(ctx context.Context) error {
	stored, err := m.store.LoadToken()
	if err != nil {
		log.Printf("session: reading stored token: %v", err)
	}
	if stored == "" {
		m.transition(Unauthenticated, "", model.User{})
		return nil
	}

	m.mu.Lock()
	m.token = stored
	gen := m.gen
	m.mu.Unlock()

	user, err := m.gw.CurrentUser(ctx)
	if err != nil {
		if api.IsAuth(err) {
			log.Printf("session: stored token rejected, signing out")
			m.clearStored()
		} else {
			log.Printf("session: could not restore session: %v", err)
		}
		m.transitionIf(gen, Unauthenticated, "", model.User{})
		return err
	}

	if user.Token == "" {
		user.Token = stored
	}
	m.transitionIf(gen, Authenticated, user.Token, user)
	return nil
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	fields := map[string][]string{}
	requireField(fields, "email", email)
	requireField(fields, "password", password)
	if len(fields) > 0 {
		return &api.ValidationError{Fields: fields}
	}

	return m.authenticate(func() (model.User, error) {
		return m.gw.Login(ctx, model.Credentials{Email: strings.TrimSpace(email), Password: password})
	})
}

// Register creates an account and signs in as it.
func (m *Manager) Register(ctx context.Context, email, username, password string) error {
	fields := map[string][]string{}
	requireField(fields, "email", email)
	requireField(fields, "username", username)
	requireField(fields, "password", password)
	if len(fields) > 0 {
		return &api.ValidationError{Fields: fields}
	}

	return m.authenticate(func() (model.User, error) {
		return m.gw.Register(ctx, model.Registration{
			Email:    strings.TrimSpace(email),
			Username: strings.TrimSpace(username),
			Password: password,
		})
	})
}

func (m *Manager) authenticate(call func() (model.User, error)) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.token = ""
	m.user = model.User{}
	m.mu.Unlock()
	m.transitionIf(gen, Authenticating, "", model.User{})

	user, err := call()
	if err != nil {
		m.transitionIf(gen, Unauthenticated, "", model.User{})
		return err
	}
	if user.Token == "" {
		m.transitionIf(gen, Unauthenticated, "", model.User{})
		return &api.TransportError{Op: "authenticate", Err: errors.New("response carried no token")}
	}

	if !m.transitionIf(gen, Authenticated, user.Token, user) {
		return ErrSuperseded
	}
	if err := m.store.SaveToken(user.Token); err != nil {
		log.Printf("session: persisting token: %v", err)
	}
	return nil
}

// Logout forgets the session and the stored token. It cannot fail.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
	m.clearStored()
	m.transition(Unauthenticated, "", model.User{})
}

// UpdateProfile applies a partial update to the current user. A username
// change keeps the session.
func (m *Manager) UpdateProfile(ctx context.Context, upd model.UserUpdate) error {
	m.mu.Lock()
	authenticated := m.state == Authenticated
	gen := m.gen
	m.mu.Unlock()
	if !authenticated {
		return ErrNotAuthenticated
	}

	if upd.Password != nil && *upd.Password == "" {
		upd.Password = nil
	}
	if upd.Username != nil && strings.TrimSpace(*upd.Username) == "" {
		return &api.ValidationError{Fields: map[string][]string{"username": {"can't be blank"}}}
	}
	if upd.Email != nil && strings.TrimSpace(*upd.Email) == "" {
		return &api.ValidationError{Fields: map[string][]string{"email": {"can't be blank"}}}
	}

	user, err := m.gw.UpdateUser(ctx, upd)
	if err != nil {
		return err
	}

	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	rotated := user.Token != "" && user.Token != token
	if user.Token == "" {
		user.Token = token
	}
	if !m.transitionIf(gen, Authenticated, user.Token, user) {
		return ErrSuperseded
	}
	if rotated {
		if err := m.store.SaveToken(user.Token); err != nil {
			log.Printf("session: persisting rotated token: %v", err)
		}
	}
	return nil
}

// HandleAuthError ends the session when err is an authentication rejection.
// Other errors are ignored. It is wired as the gateway's auth hook.
func (m *Manager) HandleAuthError(err error) {
	if !api.IsAuth(err) {
		return
	}
	m.mu.Lock()
	if m.state != Authenticated && m.state != Unknown {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.mu.Unlock()

	log.Printf("session: credential rejected by server, signing out")
	m.clearStored()
	m.transition(Unauthenticated, "", model.User{})
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the session; ok is false when anonymous or unknown.
func (m *Manager) Session() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated {
		return model.Session{}, false
	}
	return model.Session{Token: m.token, User: m.user}, true
}

// IsAuthenticated reports whether a session exists.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// Viewer returns the current username, or "" when anonymous.
func (m *Manager) Viewer() string {
	s, ok := m.Session()
	if !ok {
		return ""
	}
	return s.User.Username
}

// Token is the gateway's token source. During rehydration it returns the
// stored token being checked.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Subscribe registers fn to be called with the new state on every
// transition and on every change of the session user or token. The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) transition(state State, token string, user model.User) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	m.transitionIf(gen, state, token, user)
}

// transitionIf applies the transition only if no newer operation has started
// since gen was read. It reports whether the transition was applied.
func (m *Manager) transitionIf(gen uint64, state State, token string, user model.User) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	changed := m.state != state || m.token != token || m.user != user
	m.state = state
	m.token = token
	m.user = user
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if changed {
		for _, fn := range fns {
			fn(state)
		}
	}
	return true
}

func (m *Manager) clearStored() {
	if err := m.store.ClearToken(); err != nil {
		log.Printf("session: clearing stored token: %v", err)
	}
}

func requireField(fields map[string][]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = append(fields[name], "can't be blank")
	}
}
