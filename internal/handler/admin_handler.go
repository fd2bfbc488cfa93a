package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blog-admin/internal/models"
	"blog-admin/internal/session"
)

// AdminPage describes an admin page for the client-side renderer. Page
// content itself is served elsewhere.
type AdminPage struct {
	Path           string        `json:"path"`
	ShowNavigation bool          `json:"showNavigation"`
	User           *models.Claim `json:"user,omitempty"`
}

// AdminHandler serves the gated admin pages. It trusts the gate: it never
// makes its own authorization decision.
type AdminHandler struct {
	loginPath string
}

func NewAdminHandler(gate *Gate) *AdminHandler {
	return &AdminHandler{loginPath: gate.LoginPath}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.Page)
	router.Get("/*", h.Page)
}

func (h *AdminHandler) Page(w http.ResponseWriter, r *http.Request) {
	path := r.Header.Get(PathnameHeader)
	if path == "" {
		path = PathnameFromContext(r.Context())
	}

	page := AdminPage{
		Path:           path,
		ShowNavigation: path != h.loginPath,
	}
	if s := session.FromContext(r.Context()); s != nil {
		user := s.User
		page.User = &user
	}
	respondWithJSON(w, http.StatusOK, successResponse(page, ""))
}
