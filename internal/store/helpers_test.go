package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/api/apitest"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/token"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv    *apitest.Server
	tokens *token.CacheStore
	client *api.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	tokens := token.NewCacheStore(&config.TokenStoreConfig{Type: config.TokenStoreMemory})
	client := api.New(&config.Config{APIURL: srv.APIURL(), HTTPTimeout: 5 * time.Second}, tokens)
	return &testEnv{srv: srv, tokens: tokens, client: client}
}

// loginAs persists a valid token for a new account with the given role.
func (e *testEnv) loginAs(t *testing.T, name string, role api.Role) api.User {
	t.Helper()
	user := e.srv.AddUser(name, fmt.Sprintf("%s@example.com", name), "secret1", role)
	require.NoError(t, e.tokens.Set(context.Background(), e.srv.Token(user.ID, time.Hour)))
	return user
}

func (e *testEnv) seedMedia(creatorID string, titles ...string) []api.Media {
	out := make([]api.Media, 0, len(titles))
	for _, title := range titles {
		out = append(out, e.srv.AddMedia(creatorID, api.Media{
			Title: title,
			Type:  api.MediaTypeImage,
			URL:   "/uploads/" + title + ".png",
			Tags:  []string{"seed"},
		}))
	}
	return out
}

// recorder keeps every state a store publishes.
type recorder[S any] struct {
	states chan S
}

func record[S any](subscribe func(func(S)) func()) (*recorder[S], func()) {
	r := &recorder[S]{states: make(chan S, 256)}
	cancel := subscribe(func(s S) {
		r.states <- s
	})
	return r, cancel
}

func (r *recorder[S]) drain() []S {
	var out []S
	for {
		select {
		case s := <-r.states:
			out = append(out, s)
		default:
			return out
		}
	}
}

func requestsTo(requests []apitest.RecordedRequest, route string) []apitest.RecordedRequest {
	return lo.Filter(requests, func(r apitest.RecordedRequest, _ int) bool {
		return r.Route == route
	})
}
