package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cropsight/apiserver/internal/classifier"
	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret         = "test-secret"
	testBootstrapPassword = "admin123"
)

const testSchema = `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (id),
		disease TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`

type testEnv struct {
	router      *chi.Mux
	db          *sql.DB
	uploadDir   string
	users       *services.UserService
	predictions *services.PredictionService
}

// newTestEnv wires the full route table over an in-memory database and the
// stub classifier, mirroring the production server setup.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	userService := services.NewUserService(store.NewUserRepository(db))
	predictionService := services.NewPredictionService(store.NewPredictionRepository(db))
	require.NoError(t, userService.EnsureAdmin(context.Background(), testBootstrapPassword))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	uploadDir := t.TempDir()

	authHandler := NewAuthHandler(userService, testJWTSecret, testBootstrapPassword)
	predictHandler := NewPredictHandler(classifier.NewStub(0), predictionService, uploadDir, logger)
	adminHandler := NewAdminHandler(userService)
	pageHandler := NewPageHandler(renderer, userService, predictionService, logger)

	requireUser := RequireUser(testJWTSecret)
	requireAdmin := RequireAdmin(testJWTSecret)
	optionalUser := OptionalUser(testJWTSecret)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", Healthz)
	router.Get("/", pageHandler.Login)
	router.Get("/signup", pageHandler.Signup)
	router.Post("/signup", authHandler.Signup)
	router.Post("/login", authHandler.Login)
	router.With(optionalUser).Get("/dashboard", pageHandler.Dashboard)
	router.With(optionalUser).Post("/predict", predictHandler.Predict)
	router.With(optionalUser).Get("/history", predictHandler.History)
	router.With(requireUser).Post("/clear_history", predictHandler.ClearHistory)
	router.Get("/admin_login", pageHandler.AdminLogin)
	router.Post("/admin_login", authHandler.AdminLogin)
	router.With(optionalUser).Get("/admin_dashboard", pageHandler.AdminDashboard)
	router.With(requireAdmin).Post("/admin_create_user", adminHandler.CreateUser)
	router.With(requireAdmin).Delete("/admin_delete_user/{userID}", adminHandler.DeleteUser)
	router.Post("/logout_admin", authHandler.LogoutAdmin)

	return &testEnv{
		router:      router,
		db:          db,
		uploadDir:   uploadDir,
		users:       userService,
		predictions: predictionService,
	}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signup(t *testing.T, username, password string) {
	t.Helper()
	rec := e.postForm(t, "/signup", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {password},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, path, username, password string) string {
	t.Helper()
	rec := e.postForm(t, path, url.Values{
		"username": {username},
		"password": {password},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) userToken(t *testing.T, username, password string) string {
	t.Helper()
	e.signup(t, username, password)
	return e.login(t, "/login", username, password)
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	return e.login(t, "/admin_login", "admin", testBootstrapPassword)
}

func (e *testEnv) userCount(t *testing.T) int {
	t.Helper()
	var count int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(1) FROM users").Scan(&count))
	return count
}

func (e *testEnv) predictionCount(t *testing.T) int {
	t.Helper()
	var count int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(1) FROM predictions").Scan(&count))
	return count
}

func testImageJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(y % 256), B: uint8(x % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func (e *testEnv) predict(t *testing.T, fieldName, filename string, data []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if fieldName != "" {
		part, err := writer.CreateFormFile(fieldName, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
