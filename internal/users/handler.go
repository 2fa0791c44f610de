package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
	"github.com/promoterhub/promoterhub/internal/rbac"
	"github.com/promoterhub/promoterhub/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUsersRead, rbac.PermAdminAll))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUsersUpdate, rbac.PermAdminAll))
		r.Put("/{id}/role", h.changeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermAdminAll))
		r.Put("/{id}/permissions", h.setPermissions)
	})
}

type listResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user promoter"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"max=128,dive,required"`
}

type permissionsResponse struct {
	UserID      string            `json:"user_id"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	users, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Users: users, Pagination: pagination})
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.identity(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	user, err := h.service.ChangeRole(r.Context(), actorID, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.respondServiceError(w, "change role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.identity(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	userID := chi.URLParam(r, "id")
	perms, err := h.service.SetPermissions(r.Context(), actorID, userID, req.Permissions)
	if err != nil {
		h.respondServiceError(w, "set permissions failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{UserID: userID, Permissions: perms})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrForbidden):
		h.logger.Debug(msg, slog.Any("error", err))
	default:
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) identity(r *http.Request) (string, bool) {
	if h.rbac.Identity != nil {
		return h.rbac.Identity(r)
	}
	return rbac.SessionIdentity(r)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " failed " + verrs[0].Tag()
	}
	return "invalid request"
}
