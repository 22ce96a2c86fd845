package store

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionInitialState(t *testing.T) {
	env := newTestEnv(t)
	s := NewSession(env.client, env.tokens)

	state := s.Snapshot()
	assert.Equal(t, StatusLoggedOut, state.Status)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
	assert.NoError(t, state.Error)
}

func TestLoginSuccessPersistsToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleCreator)
	s := NewSession(env.client, env.tokens)

	rec, cancel := record(s.Subscribe)
	defer cancel()

	require.NoError(t, s.Login(ctx, LoginForm{Email: " ada@example.com ", Password: "secret1"}))

	states := rec.drain()
	require.Len(t, states, 2)
	assert.Equal(t, StatusLoading, states[0].Status)
	assert.True(t, states[0].Loading)
	assert.Equal(t, StatusLoggedIn, states[1].Status)
	assert.False(t, states[1].Loading)

	state := s.Snapshot()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "ada", state.User.Name)
	assert.True(t, state.User.CanUpload())

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	_, err = env.client.ListUserMedia(ctx)
	require.NoError(t, err)
	requests := env.srv.Requests()
	assert.Equal(t, "Bearer "+tok, requests[len(requests)-1].Authorization)
}

func TestLoginFailureAndClearError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleConsumer)
	s := NewSession(env.client, env.tokens)

	err := s.Login(ctx, LoginForm{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)

	state := s.Snapshot()
	assert.Equal(t, StatusError, state.Status)
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	require.Error(t, state.Error)
	assert.Equal(t, "Invalid credentials", state.Error.Error())

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	rec, cancel := record(s.Subscribe)
	defer cancel()

	s.ClearError()
	state = s.Snapshot()
	assert.Equal(t, StatusLoggedOut, state.Status)
	assert.NoError(t, state.Error)

	s.ClearError()
	assert.Len(t, rec.drain(), 1)
	assert.Equal(t, StatusLoggedOut, s.Snapshot().Status)
}

func TestFailedLoginWhileLoggedInForgetsToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleCreator)
	env.srv.AddUser("bob", "bob@example.com", "secret1", api.RoleConsumer)
	s := NewSession(env.client, env.tokens)
	require.NoError(t, s.Login(ctx, LoginForm{Email: "ada@example.com", Password: "secret1"}))

	err := s.Login(ctx, LoginForm{Email: "bob@example.com", Password: "wrong"})
	require.Error(t, err)

	state := s.Snapshot()
	assert.Equal(t, StatusError, state.Status)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, err = env.client.ListMedia(ctx, 1, 5)
	require.Error(t, err)
	requests := env.srv.Requests()
	assert.Empty(t, requests[len(requests)-1].Authorization)

	restored := NewSession(env.client, env.tokens)
	require.NoError(t, restored.Restore(ctx))
	assert.False(t, restored.Snapshot().IsAuthenticated)
}

func TestFailedRegisterWhileLoggedInForgetsToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.loginAs(t, "ada", api.RoleCreator)
	s := NewSession(env.client, env.tokens)
	require.NoError(t, s.Restore(ctx))
	require.True(t, s.Snapshot().IsAuthenticated)

	err := s.Register(ctx, RegisterForm{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: api.RoleCreator})
	require.Error(t, err)
	assert.Equal(t, "User already exists", err.Error())

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name  string
		form  LoginForm
		field string
	}{
		{name: "missing email", form: LoginForm{Password: "secret1"}, field: "email"},
		{name: "malformed email", form: LoginForm{Email: "ada", Password: "secret1"}, field: "email"},
		{name: "missing password", form: LoginForm{Email: "ada@example.com"}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			s := NewSession(env.client, env.tokens)
			rec, cancel := record(s.Subscribe)
			defer cancel()

			err := s.Login(context.Background(), tt.form)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, env.srv.Requests())
			assert.Empty(t, rec.drain())
			assert.Equal(t, StatusLoggedOut, s.Snapshot().Status)
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := NewSession(env.client, env.tokens, WithGravatar(&config.GravatarConfig{Enabled: true, DefaultImage: "mp"}))

	require.NoError(t, s.Register(ctx, RegisterForm{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "secret1",
		Role:     "Consumer",
	}))

	state := s.Snapshot()
	assert.Equal(t, StatusLoggedIn, state.Status)
	require.NotNil(t, state.User)
	assert.NotEmpty(t, state.User.ID)
	assert.Equal(t, api.RoleConsumer, state.User.Role)
	assert.False(t, state.User.CanUpload())
	assert.Contains(t, state.User.Avatar, "https://www.gravatar.com/avatar/")

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("grace", "grace@example.com", "secret1", api.RoleConsumer)
	s := NewSession(env.client, env.tokens)

	err := s.Register(context.Background(), RegisterForm{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "secret1",
		Role:     api.RoleConsumer,
	})
	require.Error(t, err)
	assert.Equal(t, "User already exists", err.Error())
	assert.Equal(t, StatusError, s.Snapshot().Status)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		form    RegisterForm
		message string
	}{
		{
			name:    "short name",
			form:    RegisterForm{Name: "G", Email: "g@example.com", Password: "secret1", Role: api.RoleCreator},
			message: "Name must be at least 2 characters",
		},
		{
			name:    "short password",
			form:    RegisterForm{Name: "Grace", Email: "g@example.com", Password: "123", Role: api.RoleCreator},
			message: "Password must be at least 6 characters",
		},
		{
			name:    "unknown role",
			form:    RegisterForm{Name: "Grace", Email: "g@example.com", Password: "secret1", Role: "admin"},
			message: "Role must be one of: creator, consumer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			s := NewSession(env.client, env.tokens)

			err := s.Register(context.Background(), tt.form)
			require.True(t, IsValidationError(err))
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, env.srv.Requests())
		})
	}
}

type failingTokens struct {
	TokenStore
}

func (failingTokens) Clear(context.Context) error {
	return errors.New("read-only filesystem")
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleCreator)
	s := NewSession(env.client, env.tokens)
	require.NoError(t, s.Login(ctx, LoginForm{Email: "ada@example.com", Password: "secret1"}))

	s.Logout(ctx)

	state := s.Snapshot()
	assert.Equal(t, StatusLoggedOut, state.Status)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)

	tok, err := env.tokens.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestLogoutIgnoresTokenStoreFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleCreator)
	s := NewSession(env.client, failingTokens{TokenStore: env.tokens})
	require.NoError(t, s.Login(ctx, LoginForm{Email: "ada@example.com", Password: "secret1"}))

	s.Logout(ctx)

	state := s.Snapshot()
	assert.Equal(t, StatusLoggedOut, state.Status)
	assert.NoError(t, state.Error)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		env := newTestEnv(t)
		s := NewSession(env.client, env.tokens)
		require.NoError(t, s.Restore(ctx))
		assert.Equal(t, StatusLoggedOut, s.Snapshot().Status)
		assert.Empty(t, env.srv.Requests())
	})

	t.Run("valid token", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.loginAs(t, "ada", api.RoleCreator)
		s := NewSession(env.client, env.tokens)

		require.NoError(t, s.Restore(ctx))
		state := s.Snapshot()
		assert.Equal(t, StatusLoggedIn, state.Status)
		require.NotNil(t, state.User)
		assert.Equal(t, user.ID, state.User.ID)
	})

	t.Run("expired token is discarded without a request", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.srv.AddUser("ada", "ada@example.com", "secret1", api.RoleCreator)
		require.NoError(t, env.tokens.Set(ctx, env.srv.Token(user.ID, -time.Minute)))
		s := NewSession(env.client, env.tokens)

		require.NoError(t, s.Restore(ctx))
		assert.Equal(t, StatusLoggedOut, s.Snapshot().Status)
		assert.Empty(t, env.srv.Requests())

		tok, err := env.tokens.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("token expired by the clock", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(t, "ada", api.RoleCreator)
		s := NewSession(env.client, env.tokens, WithClock(func() time.Time {
			return time.Now().Add(2 * time.Hour)
		}))

		require.NoError(t, s.Restore(ctx))
		assert.Equal(t, StatusLoggedOut, s.Snapshot().Status)
		assert.Empty(t, env.srv.Requests())
	})

	t.Run("rejected token is discarded", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.tokens.Set(ctx, env.srv.Token("deleted-user", time.Hour)))
		s := NewSession(env.client, env.tokens)

		require.NoError(t, s.Restore(ctx))
		state := s.Snapshot()
		assert.Equal(t, StatusLoggedOut, state.Status)
		assert.NoError(t, state.Error)
		assert.Equal(t, 1, env.srv.Count(http.MethodGet, "/api/auth/me"))

		tok, err := env.tokens.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("server failure keeps the token", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(t, "ada", api.RoleCreator)
		env.srv.Fail(http.MethodGet, "/api/auth/me", http.StatusInternalServerError, nil)
		s := NewSession(env.client, env.tokens)

		err := s.Restore(ctx)
		require.Error(t, err)
		state := s.Snapshot()
		assert.Equal(t, StatusError, state.Status)
		assert.Equal(t, "Error restoring session", state.Error.Error())

		tok, err := env.tokens.Get(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, tok)
	})
}
