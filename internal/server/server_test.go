package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/db"
	"blog/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := blog.New(database, auth.Hasher{Cost: bcrypt.MinCost}, log)
	sessions := session.NewManager(database, session.Options{Secret: "test-secret"}, log)
	return New(svc, sessions, log)
}

// client replays the session cookie between requests like a browser.
type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.srv.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name != c.srv.Sessions.CookieName() {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) register(name, password string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/auth/register", url.Values{"username": {name}, "password": {password}})
}

func (c *client) login(name, password string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/auth/login", url.Values{"username": {name}, "password": {password}})
}

func (c *client) signUp(name, password string) {
	c.t.Helper()
	require.Equal(c.t, http.StatusSeeOther, c.register(name, password).Code)
	require.Equal(c.t, http.StatusSeeOther, c.login(name, password).Code)
	require.NotNil(c.t, c.cookie)
}

type indexPage struct {
	User *struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"user"`
	Posts []struct {
		ID       uuid.UUID `json:"id"`
		Title    string    `json:"title"`
		Body     string    `json:"body"`
		Editable bool      `json:"editable"`
		Author   struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"posts"`
}

type postPage struct {
	Post struct {
		ID       uuid.UUID `json:"id"`
		Title    string    `json:"title"`
		Body     string    `json:"body"`
		Editable bool      `json:"editable"`
	} `json:"post"`
	Comments []struct {
		ID       uuid.UUID `json:"id"`
		Text     string    `json:"text"`
		Editable bool      `json:"editable"`
	} `json:"comments"`
}

type flashPage struct {
	Flash []string `json:"flash"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (c *client) index() indexPage {
	c.t.Helper()
	w := c.do(http.MethodGet, "/", nil)
	require.Equal(c.t, http.StatusOK, w.Code)
	return decode[indexPage](c.t, w)
}

func TestHello(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	w := c.do(http.MethodGet, "/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello World!", w.Body.String())
}

func TestRegisterLogin(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}

	w := c.register("alice", "secret")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))
	assert.Nil(t, c.cookie)

	w = c.login("alice", "secret")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	page := c.index()
	require.NotNil(t, page.User)
	assert.Equal(t, "alice", page.User.Name)
}

func TestAuthFailuresFlash(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.register("alice", "secret")

	tests := []struct {
		name string
		do   func() *httptest.ResponseRecorder
		want string
	}{
		{"duplicate", func() *httptest.ResponseRecorder { return c.register("alice", "other") }, "User alice is already registered."},
		{"empty username", func() *httptest.ResponseRecorder { return c.register("", "pw") }, blog.MsgUsernameRequired},
		{"empty password", func() *httptest.ResponseRecorder { return c.register("bob", "") }, blog.MsgPasswordRequired},
		{"unknown user", func() *httptest.ResponseRecorder { return c.login("nobody", "secret") }, blog.MsgIncorrectUsername},
		{"wrong password", func() *httptest.ResponseRecorder { return c.login("alice", "nope") }, blog.MsgIncorrectPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.do()
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []string{tt.want}, decode[flashPage](t, w).Flash)
			assert.Nil(t, c.cookie)
		})
	}
}

func TestLoginRequired(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	id := uuid.NewString()

	for _, target := range []string{
		"/create",
		"/" + id + "/update",
		"/" + id + "/delete",
		"/" + id + "/comment",
		"/comment/" + id + "/edit",
	} {
		w := c.do(http.MethodPost, target, url.Values{"title": {"t"}, "text": {"t"}})
		assert.Equal(t, http.StatusSeeOther, w.Code, target)
		assert.Equal(t, "/auth/login", w.Header().Get("Location"), target)
	}
}

func TestPostCommentFlow(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.signUp("alice", "secret")

	w := c.do(http.MethodPost, "/create", url.Values{"title": {"First"}, "body": {"hello"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	page := c.index()
	require.Len(t, page.Posts, 1)
	post := page.Posts[0]
	assert.Equal(t, "First", post.Title)
	assert.Equal(t, "alice", post.Author.Name)
	assert.True(t, post.Editable)
	postURL := "/" + post.ID.String()

	w = c.do(http.MethodPost, postURL+"/update", url.Values{"title": {"Renamed"}, "body": {"changed"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = c.do(http.MethodPost, postURL+"/comment", url.Values{"text": {"nice"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, postURL, w.Header().Get("Location"))

	w = c.do(http.MethodGet, postURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[postPage](t, w)
	assert.Equal(t, "Renamed", view.Post.Title)
	assert.Equal(t, "changed", view.Post.Body)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "nice", view.Comments[0].Text)
	assert.True(t, view.Comments[0].Editable)

	w = c.do(http.MethodPost, "/comment/"+view.Comments[0].ID.String()+"/edit", url.Values{"text": {"nicer"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, postURL, w.Header().Get("Location"))

	w = c.do(http.MethodPost, postURL+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, c.index().Posts)

	w = c.do(http.MethodGet, postURL, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationFlash(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.signUp("alice", "secret")

	w := c.do(http.MethodPost, "/create", url.Values{"title": {""}, "body": {"x"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{blog.MsgTitleRequired}, decode[flashPage](t, w).Flash)

	c.do(http.MethodPost, "/create", url.Values{"title": {"T"}})
	postURL := "/" + c.index().Posts[0].ID.String()

	w = c.do(http.MethodPost, postURL+"/comment", url.Values{"text": {""}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{blog.MsgCommentTextRequired}, decode[flashPage](t, w).Flash)

	w = c.do(http.MethodGet, postURL, nil)
	assert.Empty(t, decode[postPage](t, w).Comments)
}

func TestOwnership(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	bob := &client{t: t, srv: srv}
	alice.signUp("alice", "secret")
	bob.signUp("bob", "secret")

	alice.do(http.MethodPost, "/create", url.Values{"title": {"Mine"}})
	postURL := "/" + alice.index().Posts[0].ID.String()
	alice.do(http.MethodPost, postURL+"/comment", url.Values{"text": {"by alice"}})
	commentID := decode[postPage](t, alice.do(http.MethodGet, postURL, nil)).Comments[0].ID.String()

	page := bob.index()
	require.Len(t, page.Posts, 1)
	assert.False(t, page.Posts[0].Editable)

	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPost, postURL+"/update", url.Values{"title": {"x"}}).Code)
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPost, postURL+"/delete", nil).Code)
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPost, "/comment/"+commentID+"/edit", url.Values{"text": {"x"}}).Code)

	// Anyone logged in may comment on any post.
	assert.Equal(t, http.StatusSeeOther, bob.do(http.MethodPost, postURL+"/comment", url.Values{"text": {"by bob"}}).Code)

	missing := "/" + uuid.NewString()
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, missing+"/update", url.Values{"title": {"x"}}).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, missing+"/comment", url.Values{"text": {"x"}}).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, "/comment/"+uuid.NewString()+"/edit", url.Values{"text": {"x"}}).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, "/not-an-id", nil).Code)

	view := decode[postPage](t, alice.do(http.MethodGet, postURL, nil))
	assert.Equal(t, "Mine", view.Post.Title)
	assert.Len(t, view.Comments, 2)
}

func TestLogoutRevokesSession(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.signUp("alice", "secret")
	stolen := c.cookie

	w := c.do(http.MethodGet, "/auth/logout", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Nil(t, c.cookie)
	assert.Nil(t, c.index().User)

	replay := &client{t: t, srv: c.srv, cookie: stolen}
	w = replay.do(http.MethodPost, "/create", url.Values{"title": {"T"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))
}
