package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// sessionCookieName carries the session token for the HTML pages. API
// clients send the same token as a bearer header instead.
const sessionCookieName = "cropsight_session"

// AuthHandler provides signup, login and logout endpoints.
type AuthHandler struct {
	users    *services.UserService
	secret   []byte
	tokenTTL time.Duration

	// bootstrapPassword, when non-empty, is accepted on /admin_login as a
	// break-glass credential for the reserved admin account.
	bootstrapPassword string
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, jwtSecret, bootstrapPassword string) *AuthHandler {
	return &AuthHandler{
		users:             users,
		secret:            []byte(jwtSecret),
		tokenTTL:          defaultTokenTTL,
		bootstrapPassword: bootstrapPassword,
	}
}

type authResponse struct {
	Success  bool   `json:"success"`
	Msg      string `json:"msg,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Signup creates a new user account. It never establishes a session; the
// user logs in separately.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Msg: "username and password are required"})
		return
	}

	_, err := h.users.Register(r.Context(), username, email, password, types.RoleUser, false)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Msg: "username already exists"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Success: true})
}

// Login verifies credentials, issues a session token and reports where the
// client should navigate next.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, authResponse{Success: false, Msg: "invalid credentials"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	h.establishSession(w, r, user)
}

// AdminLogin is the administrative login path. Besides regular credential
// checks it honors the configured break-glass password for the reserved
// admin account.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == types.AdminUsername && h.bootstrapPassword != "" && password == h.bootstrapPassword {
		admin, err := h.users.GetByUsername(r.Context(), types.AdminUsername)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "admin account unavailable")
			return
		}
		h.establishSession(w, r, admin)
		return
	}

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil || !user.IsAdmin() {
		writeJSON(w, http.StatusUnauthorized, authResponse{Success: false, Msg: "invalid admin credentials"})
		return
	}

	h.establishSession(w, r, user)
}

// LogoutAdmin clears the session cookie. Idempotent.
func (h *AuthHandler) LogoutAdmin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *AuthHandler) establishSession(w http.ResponseWriter, r *http.Request, user types.User) {
	token, err := issueToken(user, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirect := "/dashboard"
	if user.IsAdmin() {
		redirect = "/admin_dashboard"
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Redirect: redirect, Token: token})
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func issueToken(user types.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (identity, error) {
	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return identity{}, err
	}
	if !token.Valid {
		return identity{}, errors.New("invalid token")
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return identity{}, errors.New("invalid subject")
	}

	role := claims.Role
	if role == "" {
		role = types.RoleUser
	}
	return identity{UserID: userID, Role: role}, nil
}

func tokenFromRequest(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization")
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", errors.New("invalid authorization")
		}
		return token, nil
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("missing token")
	}
	return cookie.Value, nil
}

// RequireUser enforces an authenticated session.
func RequireUser(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := requestIdentity(r, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin enforces an authenticated session holding the admin role.
func RequireAdmin(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := requestIdentity(r, secret)
			if err != nil || id.Role != types.RoleAdmin {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// OptionalUser injects the caller's identity when a valid token is present
// and lets the request through either way. Used by endpoints that serve
// both anonymous and authenticated callers.
func OptionalUser(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := requestIdentity(r, secret); err == nil {
				r = r.WithContext(withIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIdentity(r *http.Request, secret []byte) (identity, error) {
	tokenString, err := tokenFromRequest(r)
	if err != nil {
		return identity{}, err
	}
	return parseToken(tokenString, secret)
}
