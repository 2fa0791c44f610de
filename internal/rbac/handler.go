package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
)

// Handler exposes the caller's resolved permissions and admin cache controls.
type Handler struct {
	logger    *slog.Logger
	resolver  *Resolver
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, resolver: resolver, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers rbac routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/permissions", h.myPermissions)
	r.Post("/me/check", h.checkMine)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermRolesRead, PermAdminAll))
		r.Get("/roles/{role}/permissions", h.rolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(PermAdminAll))
		r.Post("/users/{id}/invalidate", h.invalidateUser)
	})
}

type permissionsResponse struct {
	UserID      string   `json:"user_id,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions"`
}

type checkRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,max=32,dive,required"`
	Mode        string   `json:"mode" validate:"omitempty,oneof=any all"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	perms := h.resolver.UserPermissions(r.Context(), userID)
	httpx.JSON(w, http.StatusOK, permissionsResponse{UserID: userID, Permissions: sortedStrings(perms)})
}

func (h *Handler) checkMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	mode, err := ParseMatchMode(req.Mode)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perms, err := ParsePermissions(req.Permissions)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decision := h.resolver.Check(r.Context(), userID, mode, perms)
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: decision.Allowed})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	perms := DefaultPermissionsForRole(role.String())
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: role.String(), Permissions: sortedStrings(perms)})
}

func (h *Handler) invalidateUser(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "id")
	if err := h.resolver.Invalidate(r.Context(), target); err != nil {
		h.logger.Error("rbac invalidate", slog.String("user_id", target), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("rbac cache invalidated", slog.String("user_id", target))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identity(r *http.Request) (string, bool) {
	if h.rbac.Identity != nil {
		return h.rbac.Identity(r)
	}
	return SessionIdentity(r)
}

func sortedStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	sort.Strings(out)
	return out
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " failed " + verrs[0].Tag()
	}
	return "invalid request"
}
