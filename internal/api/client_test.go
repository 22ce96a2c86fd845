package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Get(context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(&config.Config{APIURL: server.URL + "/api", HTTPTimeout: 5 * time.Second}, tokens, opts...)
}

func TestBaseURLFollowsEnvironment(t *testing.T) {
	cfg := &config.Config{
		Env: config.EnvProduction,
		Environments: map[config.Env]*config.EnvironmentConfig{
			config.EnvDevelopment: {APIURL: "http://localhost:5000/api"},
			config.EnvProduction:  {APIURL: "https://media.example.com/api"},
		},
	}
	assert.Equal(t, "https://media.example.com/api", New(cfg, nil).BaseURL())

	cfg.Env = config.EnvDevelopment
	assert.Equal(t, "http://localhost:5000/api", New(cfg, nil).BaseURL())
}

func TestRequestCarriesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"_id":"u1","name":"Ada","email":"ada@example.com","role":"creator"}`)
	}), staticToken{token: "abc"})

	user, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.CanUpload())
}

func TestRequestWithoutToken(t *testing.T) {
	tests := []struct {
		name   string
		tokens TokenSource
	}{
		{name: "no token source", tokens: nil},
		{name: "empty token", tokens: staticToken{}},
		{name: "unreadable token", tokens: staticToken{err: errors.New("disk gone")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hadAuth bool
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, hadAuth = r.Header["Authorization"]
				fmt.Fprint(w, `{"token":"t","user":{"id":"u1","name":"Ada"}}`)
			}), tt.tokens)

			resp, err := client.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret"})
			require.NoError(t, err)
			assert.False(t, hadAuth)
			assert.Equal(t, "u1", resp.User.ID)
		})
	}
}

func TestListMedia(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/media", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{
			"media": [{"_id":"m1","title":"Sunset","type":"image","tags":["sky"],"creator":{"_id":"u1","name":"Ada"}}],
			"currentPage": 2,
			"totalPages": 3,
			"totalMedia": 11
		}`)
	}), staticToken{token: "abc"})

	page, err := client.ListMedia(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Media, 1)
	assert.Equal(t, "Sunset", page.Media[0].Title)
	assert.Equal(t, "Ada", page.Media[0].Creator.Name)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 11, page.TotalMedia)
}

func TestSearchMediaEmptyResult(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/media/search", r.URL.Path)
		assert.Equal(t, "beach house", r.URL.Query().Get("query"))
		fmt.Fprint(w, `null`)
	}), nil)

	result, err := client.SearchMedia(context.Background(), "beach house")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestAddRatingAcceptsTotalRatings(t *testing.T) {
	var body map[string]float64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ratings/m1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"averageRating":4.5,"totalRatings":2}`)
	}), staticToken{token: "abc"})

	summary, err := client.AddRating(context.Background(), "m1", 4.5)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, body["value"], 0.0001)
	assert.InDelta(t, 4.5, summary.AverageRating, 0.0001)
	assert.Equal(t, 2, summary.RatingsCount)
}

func TestDeleteMedia(t *testing.T) {
	var method, path string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		fmt.Fprint(w, `{"message":"Media deleted"}`)
	}), staticToken{token: "abc"})

	require.NoError(t, client.DeleteMedia(context.Background(), "m1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/media/m1", path)
}

func TestErrorNormalizationOverHTTP(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{name: "structured message", status: 400, body: `{"message":"Invalid credentials"}`, kind: KindServer, message: "Invalid credentials"},
		{name: "validation list", status: 400, body: `{"errors":[{"msg":"Please include a valid email"},{"msg":"other"}]}`, kind: KindValidation, message: "Please include a valid email"},
		{name: "bare string", status: 500, body: `"Server Error"`, kind: KindServer, message: "Server Error"},
		{name: "html body", status: 502, body: `<html>bad gateway</html>`, kind: KindFallback, message: "Login failed"},
		{name: "empty body", status: 500, body: ``, kind: KindFallback, message: "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}), nil)

			_, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "x"})
			require.Error(t, err)

			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "login", apiErr.Op)
		})
	}
}

func TestUndecodableSuccessUsesFallback(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}), nil)

	_, err := client.GetMedia(context.Background(), "m1")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindFallback, apiErr.Kind)
	assert.Equal(t, "Error loading media", apiErr.Message)
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(&config.Config{APIURL: url + "/api", HTTPTimeout: time.Second}, nil)
	_, err := client.ListUserMedia(context.Background())
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, "Error fetching your media", apiErr.Message)
	assert.Zero(t, apiErr.Status)
	assert.NotNil(t, errors.Unwrap(apiErr))
}

func TestUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Token is not valid"}`)
	}), staticToken{token: "stale"})

	_, err := client.Me(context.Background())
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, "Token is not valid", apiErr.Error())
}

func TestUploadMediaMultipart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/media/upload", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Sunset", r.FormValue("title"))
		assert.Equal(t, "Golden hour", r.FormValue("caption"))
		assert.Equal(t, "Lisbon", r.FormValue("location"))
		assert.Equal(t, "image", r.FormValue("type"))

		var tags []string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("tags")), &tags))
		assert.Equal(t, []string{"sky", "sea"}, tags)

		file, header, err := r.FormFile("media")
		require.NoError(t, err)
		defer file.Close() //nolint:errcheck
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "pixels", string(data))
		assert.Equal(t, `sun"set.png`, header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"_id":"m9","title":"Sunset","type":"image","url":"/uploads/m9.png","tags":["sky","sea"]}`)
	}), staticToken{token: "abc"})

	media, err := client.UploadMedia(context.Background(), UploadRequest{
		File:        strings.NewReader("pixels"),
		FileName:    `sun"set.png`,
		ContentType: "image/png",
		Title:       "Sunset",
		Caption:     "Golden hour",
		Location:    "Lisbon",
		Type:        MediaTypeImage,
		Tags:        []string{"sky", "sea"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m9", media.ID)
	assert.Equal(t, []string{"sky", "sea"}, media.Tags)
}

func TestUploadMediaServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Please upload a file"}`)
	}), staticToken{token: "abc"})

	_, err := client.UploadMedia(context.Background(), UploadRequest{
		File:     strings.NewReader("x"),
		FileName: "x.png",
		Title:    "Sunset",
		Type:     MediaTypeImage,
	})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Please upload a file", apiErr.Message)
}

func TestMediaTypeFromMIME(t *testing.T) {
	assert.Equal(t, MediaTypeImage, MediaTypeFromMIME("image/png"))
	assert.Equal(t, MediaTypeVideo, MediaTypeFromMIME("video/mp4"))
	assert.Equal(t, MediaType(""), MediaTypeFromMIME("text/plain; charset=utf-8"))
}

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/media/bad" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Media not found"}`)
			return
		}
		fmt.Fprint(w, `{"_id":"m1","title":"Sunset","comments":[],"ratings":[]}`)
	}), nil, WithMetrics(m))

	_, err := client.GetMedia(context.Background(), "m1")
	require.NoError(t, err)
	_, err = client.GetMedia(context.Background(), "bad")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestTotal.WithLabelValues("get_media", metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestTotal.WithLabelValues("get_media", metrics.OutcomeError)), 0)
}
