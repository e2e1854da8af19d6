package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/config"
	"github.com/d60-Lab/blogapi/internal/testutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	engine http.Handler
}

func newClient(t *testing.T, opts ...func(*config.Config)) *client {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, Mode: "test"},
		Redis:   config.RedisConfig{CacheTTL: time.Minute},
		JWT:     config.JWTConfig{Secret: "test-secret", Issuer: "blogapi", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	for _, o := range opts {
		o(cfg)
	}
	a := Build(cfg, Deps{DB: db, Redis: rdb})
	require.Nil(t, a.Relay)
	return &client{t: t, engine: a.Engine}
}

func (c *client) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (c *client) signup(name string) string {
	c.t.Helper()
	code, _ := c.do(http.MethodPost, "/auth/register/", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "password123",
	})
	require.Equal(c.t, http.StatusCreated, code)
	code, env := c.do(http.MethodPost, "/auth/login/", "", map[string]string{
		"username": name, "password": "password123",
	})
	require.Equal(c.t, http.StatusOK, code)
	var res struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(c.t, res.Access)
	return res.Access
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func TestAnonymousReads(t *testing.T) {
	c := newClient(t)

	code, env := c.do(http.MethodGet, "/posts/trending/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, _ = c.do(http.MethodGet, "/api/stats/posts/", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodPost, "/posts/", "", map[string]string{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", env.Error)

	code, _ = c.do(http.MethodGet, "/posts/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLikeNotifiesAuthor(t *testing.T) {
	c := newClient(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	code, env := c.do(http.MethodPost, "/posts/", alice, map[string]string{"title": "Hello", "content": "first post"})
	require.Equal(t, http.StatusCreated, code)
	var post struct {
		ID     uint64 `json:"id"`
		Author string `json:"author"`
	}
	decode(t, env, &post)
	assert.Equal(t, "alice", post.Author)

	likePath := fmt.Sprintf("/likes/%d/", post.ID)
	code, env = c.do(http.MethodPost, likePath, bob, nil)
	require.Equal(t, http.StatusOK, code)
	var toggled struct {
		Detail string `json:"detail"`
		Count  int64  `json:"count"`
	}
	decode(t, env, &toggled)
	assert.Equal(t, "Liked", toggled.Detail)
	assert.EqualValues(t, 1, toggled.Count)

	code, env = c.do(http.MethodGet, likePath, bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"likes":1,"liked_by_user":true}`, string(env.Data))

	code, env = c.do(http.MethodGet, "/notifications/", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		List []struct {
			ID      uint64 `json:"id"`
			Actor   string `json:"actor"`
			Message string `json:"message"`
			IsRead  bool   `json:"is_read"`
		} `json:"list"`
	}
	decode(t, env, &page)
	require.Len(t, page.List, 1)
	assert.Equal(t, "bob", page.List[0].Actor)
	assert.Equal(t, "bob liked your post: 'Hello'", page.List[0].Message)
	assert.False(t, page.List[0].IsRead)

	code, env = c.do(http.MethodGet, "/notifications/unread-count/", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unread":1}`, string(env.Data))

	// bob 看不到 alice 的通知
	code, _ = c.do(http.MethodPut, fmt.Sprintf("/notifications/%d/", page.List[0].ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPut, fmt.Sprintf("/notifications/%d/", page.List[0].ID), alice, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodPost, likePath, bob, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, env, &toggled)
	assert.Equal(t, "Unliked", toggled.Detail)
	assert.Zero(t, toggled.Count)

	code, env = c.do(http.MethodGet, "/posts/trending/", "", nil)
	require.Equal(t, http.StatusOK, code)
	var trending []struct {
		Title      string `json:"title"`
		LikesCount int64  `json:"likes_count"`
	}
	decode(t, env, &trending)
	require.Len(t, trending, 1)
	assert.Equal(t, "Hello", trending[0].Title)
	assert.Zero(t, trending[0].LikesCount)
}

func TestOwnershipAndComments(t *testing.T) {
	c := newClient(t)
	alice := c.signup("alice")
	bob := c.signup("bob")

	_, env := c.do(http.MethodPost, "/posts/", alice, map[string]string{"title": "Owned", "content": "body"})
	var post struct {
		ID uint64 `json:"id"`
	}
	decode(t, env, &post)
	postPath := fmt.Sprintf("/posts/%d/", post.ID)

	code, _ := c.do(http.MethodPatch, postPath, bob, map[string]string{"title": "stolen"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, fmt.Sprintf("/comments/%d/", post.ID), bob, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, code)
	var comment struct {
		ID uint64 `json:"id"`
	}
	decode(t, env, &comment)

	code, env = c.do(http.MethodGet, fmt.Sprintf("/posts/%d/comments/", post.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"content":"nice"`)

	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/comments/%d/", comment.ID), alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodDelete, postPath, alice, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = c.do(http.MethodGet, postPath, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodGet, fmt.Sprintf("/comments/detail/%d/", comment.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGuestCannotSelfPromote(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) { cfg.Auth.RequireAuthorRole = true })
	mallory := c.signup("mallory")

	code, env := c.do(http.MethodPut, "/users/role/", mallory, map[string]string{"role": "Author"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error)

	code, _ = c.do(http.MethodPost, "/posts/", mallory, map[string]string{"title": "spam", "content": "spam"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodGet, "/users/me/", mallory, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"role":"Guest"`)
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up","redis":"up"}`, w.Body.String())

	_, _ = c.do(http.MethodGet, "/posts/", "", nil)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
