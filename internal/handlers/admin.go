package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/store"
	"github.com/cropsight/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler provides admin-only user management endpoints.
type AdminHandler struct {
	users *services.UserService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(users *services.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// CreateUser creates an account on behalf of an administrator. Unlike
// self-signup, every field is required and the email must be unique too.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	_, err := h.users.Register(r.Context(), username, email, password, types.RoleUser, true)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "username or email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Msg: "user created successfully"})
}

// DeleteUser removes a user and their prediction history. The reserved
// admin account cannot be deleted.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrProtected):
			writeError(w, http.StatusBadRequest, "cannot delete admin")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Msg: "user deleted successfully"})
}
