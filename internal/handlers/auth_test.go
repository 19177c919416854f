package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupThenLogin(t *testing.T) {
	env := newTestEnv(t)

	env.signup(t, "bob", "secret")
	token := env.login(t, "/login", "bob", "secret")
	assert.NotEmpty(t, token)

	rec := env.get(t, "/history", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/signup", url.Values{"username": {"bob"}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	env.signup(t, "bob", "secret")
	before := env.userCount(t)

	rec := env.postForm(t, "/signup", url.Values{
		"username": {"bob"},
		"email":    {"other@example.com"},
		"password": {"secret"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "username already exists", resp.Msg)
	assert.Equal(t, before, env.userCount(t))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "bob", "secret")

	rec := env.postForm(t, "/login", url.Values{
		"username": {"bob"},
		"password": {"wrong"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/login", url.Values{
		"username": {"nobody"},
		"password": {"secret"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "bob", "secret")

	rec := env.postForm(t, "/login", url.Values{
		"username": {"bob"},
		"password": {"secret"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var session *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			session = cookie
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotEmpty(t, session.Value)

	// The cookie alone authenticates follow-up requests.
	req, rec2 := newCookieRequest(http.MethodGet, "/history", session)
	env.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestAdminLoginSeededCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/admin_login", url.Values{
		"username": {"admin"},
		"password": {testBootstrapPassword},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/admin_dashboard", resp.Redirect)
	assert.NotEmpty(t, resp.Token)
}

func TestAdminLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/admin_login", url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid admin credentials", resp.Msg)
}

func TestAdminLoginRejectsRegularUser(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "bob", "secret")

	rec := env.postForm(t, "/admin_login", url.Values{
		"username": {"bob"},
		"password": {"secret"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserTokenDoesNotGrantAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.userToken(t, "bob", "secret")

	rec := env.postForm(t, "/admin_create_user", url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"secret"},
	}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAdminIdempotent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/logout_admin", url.Values{}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.postForm(t, "/logout_admin", url.Values{}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var cleared *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			cleared = cookie
		}
	}
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func newCookieRequest(method, path string, cookie *http.Cookie) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(cookie)
	return req, httptest.NewRecorder()
}
