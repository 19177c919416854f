package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/web"
	"github.com/cropsight/apiserver/types"
)

// PageHandler renders the HTML pages. Gated pages fall back to the
// matching login page when the caller holds no valid session.
type PageHandler struct {
	renderer    *web.Renderer
	users       *services.UserService
	predictions *services.PredictionService
	logger      *slog.Logger
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(
	renderer *web.Renderer,
	users *services.UserService,
	predictions *services.PredictionService,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		renderer:    renderer,
		users:       users,
		predictions: predictions,
		logger:      logger,
	}
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", nil)
}

func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html", nil)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromContext(r.Context()); !ok {
		h.render(w, "login.html", nil)
		return
	}
	h.render(w, "dashboard.html", nil)
}

func (h *PageHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, "admin_login.html", nil)
}

// AdminDashboard lists every non-admin user and the latest predictions
// across all users.
func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok || id.Role != types.RoleAdmin {
		h.render(w, "admin_login.html", nil)
		return
	}

	users, err := h.users.ListNonAdmin(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load users")
		return
	}

	predictions, err := h.predictions.RecentAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	h.render(w, "admin_dashboard.html", struct {
		Users       []types.User
		Predictions []types.PredictionWithUser
	}{Users: users, Predictions: predictions})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	if err := h.renderer.Render(w, name, data); err != nil {
		h.logger.Error("failed to render page", "template", name, "error", err)
	}
}
