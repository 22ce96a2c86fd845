// Package store holds the client application state and the operations that change it.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/gravatar"
	"github.com/streamvibe/streamvibe/internal/token"
)

// Status is the position of the session in its lifecycle.
type Status string

const (
	StatusLoggedOut Status = "loggedOut"
	StatusLoading   Status = "loading"
	StatusLoggedIn  Status = "loggedIn"
	StatusError     Status = "error"
)

// SessionState is a snapshot of the session.
// IsAuthenticated is true exactly when User is set.
type SessionState struct {
	Status          Status
	IsAuthenticated bool
	User            *api.User
	Loading         bool
	Error           error
}

func (s SessionState) clone() SessionState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AuthAPI is the part of the backend the session talks to.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.User, error)
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithGravatar fills in missing avatars from Gravatar.
func WithGravatar(cfg *config.GravatarConfig) SessionOption {
	return func(s *Session) {
		s.gravatar = cfg
	}
}

// WithClock replaces the clock used to check token expiry.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session tracks who is logged in.
type Session struct {
	client   AuthAPI
	tokens   TokenStore
	gravatar *config.GravatarConfig
	now      func() time.Time

	mu        sync.Mutex
	state     SessionState
	listeners listeners[SessionState]
}

// NewSession creates a logged out session.
func NewSession(client AuthAPI, tokens TokenStore, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		tokens: tokens,
		now:    time.Now,
		state:  SessionState{Status: StatusLoggedOut},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state. Call cancel to unsubscribe.
func (s *Session) Subscribe(fn func(SessionState)) (cancel func()) {
	return s.listeners.add(fn)
}

// update applies fn under the lock and notifies subscribers afterwards.
func (s *Session) update(fn func(*SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.IsAuthenticated = s.state.User != nil
	snapshot := s.state.clone()
	version := s.listeners.stamp()
	s.mu.Unlock()

	s.listeners.publish(version, snapshot)
}

func (s *Session) begin() {
	s.update(func(st *SessionState) {
		st.Status = StatusLoading
		st.Loading = true
		st.Error = nil
	})
}

// fail records err and forgets the user. Login and register discard the
// persisted token before calling it.
func (s *Session) fail(err error) {
	s.update(func(st *SessionState) {
		st.Status = StatusError
		st.User = nil
		st.Loading = false
		st.Error = err
	})
}

func (s *Session) succeed(user *api.User) {
	u := *user
	if avatar := gravatar.AvatarURL(&u, s.gravatar); avatar != "" {
		u.Avatar = avatar
	}
	s.update(func(st *SessionState) {
		st.Status = StatusLoggedIn
		st.User = &u
		st.Loading = false
		st.Error = nil
	})
}

func (s *Session) persist(ctx context.Context, tok string) {
	if err := s.tokens.Set(ctx, tok); err != nil {
		log.Warn("failed to persist token, session will not survive a restart", "error", err)
	}
}

// Login authenticates with email and password and persists the returned token.
func (s *Session) Login(ctx context.Context, form LoginForm) error {
	form.normalize()
	if err := validateForm(&form); err != nil {
		return err
	}

	s.begin()
	resp, err := s.client.Login(ctx, api.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		log.Debug("login failed", "email", form.Email, "error", err)
		s.discard(ctx)
		s.fail(err)
		return err
	}

	s.persist(ctx, resp.Token)
	s.succeed(&resp.User)
	log.Debug("logged in", "user", resp.User.ID, "role", resp.User.Role)
	return nil
}

// Register creates an account and logs into it.
func (s *Session) Register(ctx context.Context, form RegisterForm) error {
	form.normalize()
	if err := validateForm(&form); err != nil {
		return err
	}

	s.begin()
	resp, err := s.client.Register(ctx, api.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		log.Debug("registration failed", "email", form.Email, "error", err)
		s.discard(ctx)
		s.fail(err)
		return err
	}

	s.persist(ctx, resp.Token)
	s.succeed(&resp.User)
	log.Debug("registered", "user", resp.User.ID, "role", resp.User.Role)
	return nil
}

// Logout forgets the user and the persisted token.
func (s *Session) Logout(ctx context.Context) {
	s.update(func(st *SessionState) {
		*st = SessionState{Status: StatusLoggedOut}
	})
	if err := s.tokens.Clear(ctx); err != nil {
		log.Warn("failed to clear persisted token", "error", err)
	}
}

// ClearError dismisses the current error. A failed session returns to logged out.
func (s *Session) ClearError() {
	s.mu.Lock()
	hasErr := s.state.Error != nil
	s.mu.Unlock()
	if !hasErr {
		return
	}

	s.update(func(st *SessionState) {
		st.Error = nil
		if st.Status == StatusError {
			st.Status = StatusLoggedOut
		}
	})
}

// Restore logs back in with the persisted token, if there is a usable one.
// A token the backend rejects is discarded and the session stays logged out.
func (s *Session) Restore(ctx context.Context) error {
	tok, err := s.tokens.Get(ctx)
	if err != nil {
		log.Warn("failed to read persisted token", "error", err)
		return nil
	}
	if tok == "" {
		return nil
	}
	if token.Expired(tok, s.now()) {
		log.Info("Session expired, please log in again")
		s.discard(ctx)
		return nil
	}

	s.begin()
	user, err := s.client.Me(ctx)
	if err != nil {
		if apiErr, ok := api.AsError(err); ok && apiErr.Unauthorized() {
			log.Info("Session is no longer valid, please log in again")
			s.discard(ctx)
			s.update(func(st *SessionState) {
				*st = SessionState{Status: StatusLoggedOut}
			})
			return nil
		}
		s.fail(err)
		return err
	}

	s.succeed(user)
	return nil
}

func (s *Session) discard(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		log.Warn("failed to clear persisted token", "error", err)
	}
}
