package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
	"github.com/promoterhub/promoterhub/internal/rbac"
)

// Handler serves the role catalog.
type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermRolesRead, rbac.PermAdminAll))
		r.Get("/", h.listRoles)
		r.Get("/{role}", h.showRole)
	})
}

type roleDetail struct {
	Summary
	Categories []CategorySummary `json:"categories"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ListRoles())
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleDetail{Summary: summary, Categories: h.service.Categories(summary.Name)})
}
