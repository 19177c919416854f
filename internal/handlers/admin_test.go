package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) deleteUser(t *testing.T, userID int, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin_delete_user/%d", userID), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminCreateUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec := env.postForm(t, "/admin_create_user", url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"secret"},
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The new account can log in right away.
	env.login(t, "/login", "carol", "secret")
}

func TestAdminCreateUserMissingFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec := env.postForm(t, "/admin_create_user", url.Values{
		"username": {"carol"},
		"password": {"secret"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "all fields are required", resp.Error)
}

func TestAdminCreateUserConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	env.signup(t, "bob", "secret")

	// Duplicate username.
	rec := env.postForm(t, "/admin_create_user", url.Values{
		"username": {"bob"},
		"email":    {"new@example.com"},
		"password": {"secret"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate email.
	rec = env.postForm(t, "/admin_create_user", url.Values{
		"username": {"carol"},
		"email":    {"bob@example.com"},
		"password": {"secret"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "username or email already exists", resp.Error)
}

func TestAdminCreateUserRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/admin_create_user", url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"secret"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	env.signup(t, "bob", "secret")
	ctx := context.Background()

	bob, err := env.users.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	_, err = env.predictions.Record(ctx, bob.ID, "Rust", 70)
	require.NoError(t, err)

	rec := env.deleteUser(t, bob.ID, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err = env.users.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, env.predictionCount(t))
}

func TestAdminDeleteAdminRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	admin, err := env.users.GetByUsername(context.Background(), types.AdminUsername)
	require.NoError(t, err)

	rec := env.deleteUser(t, admin.ID, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cannot delete admin", resp.Error)
}

func TestAdminDeleteUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec := env.deleteUser(t, 12345, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDeleteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.userToken(t, "bob", "secret")

	bob, err := env.users.GetByUsername(context.Background(), "bob")
	require.NoError(t, err)

	rec := env.deleteUser(t, bob.ID, userToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err = env.users.GetByUsername(context.Background(), "bob")
	assert.NoError(t, err)
}

func TestAdminDashboardRendersForAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	env.signup(t, "bob", "secret")

	rec := env.get(t, "/admin_dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bob")
}
