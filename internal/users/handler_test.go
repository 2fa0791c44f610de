package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoterhub/promoterhub/internal/rbac"
)

// roleStore resolves permissions from a fixed role assignment.
type roleStore map[string]rbac.Role

func (s roleStore) LookupPermissionsForUser(context.Context, string) ([]string, error) {
	return nil, rbac.ErrNotFound
}

func (s roleStore) LookupRolesForUser(_ context.Context, userID string) ([]string, error) {
	role, ok := s[userID]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	return []string{string(role)}, nil
}

func headerIdentity(r *http.Request) (string, bool) {
	id := r.Header.Get("X-Test-User")
	return id, id != ""
}

func newTestRouter(repo *stubRepo, assignments roleStore) http.Handler {
	resolver := rbac.NewResolver(rbac.ResolverOptions{Store: assignments})
	mw := rbac.Middleware{Resolver: resolver, Identity: headerIdentity}
	handler := NewHandler(nil, NewService(repo, resolver, nil, nil), mw)
	r := chi.NewRouter()
	r.Route("/users", handler.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListUsersRequiresUsersRead(t *testing.T) {
	repo := newStubRepo(sampleUser("p-1", rbac.RolePromoter))
	router := newTestRouter(repo, roleStore{"mgr": rbac.RoleManager, "p-1": rbac.RolePromoter})

	rec := do(t, router, http.MethodGet, "/users", "p-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/users?page=1&per_page=10", "mgr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Users, 1)
	assert.Equal(t, 1, body.Pagination.Total)
}

func TestChangeRoleEndpoint(t *testing.T) {
	repo := newStubRepo(sampleUser("p-1", rbac.RolePromoter))
	assignments := roleStore{"root": rbac.RoleAdmin, "mgr": rbac.RoleManager, "p-1": rbac.RolePromoter}
	router := newTestRouter(repo, assignments)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{name: "unauthenticated", user: "", body: `{"role":"user"}`, status: http.StatusUnauthorized},
		{name: "manager lacks users:update", user: "mgr", body: `{"role":"user"}`, status: http.StatusForbidden},
		{name: "unknown role", user: "root", body: `{"role":"owner"}`, status: http.StatusBadRequest},
		{name: "unknown field", user: "root", body: `{"role":"user","extra":1}`, status: http.StatusBadRequest},
		{name: "admin changes role", user: "root", body: `{"role":"user"}`, status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPut, "/users/p-1/role", tc.user, tc.body)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, rbac.RoleUser, repo.users["p-1"].Role)
}

func TestChangeRoleEndpointUnknownUser(t *testing.T) {
	router := newTestRouter(newStubRepo(), roleStore{"root": rbac.RoleAdmin})

	rec := do(t, router, http.MethodPut, "/users/ghost/role", "root", `{"role":"user"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetPermissionsEndpoint(t *testing.T) {
	repo := newStubRepo(sampleUser("p-1", rbac.RolePromoter))
	router := newTestRouter(repo, roleStore{"root": rbac.RoleAdmin, "mgr": rbac.RoleManager})

	rec := do(t, router, http.MethodPut, "/users/p-1/permissions", "mgr", `{"permissions":["hr:read"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPut, "/users/p-1/permissions", "root", `{"permissions":["hr:read","nope:x"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/users/p-1/permissions", "root", `{"permissions":["hr:read"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"p-1","permissions":["hr:read"]}`, rec.Body.String())
	assert.Equal(t, []rbac.Permission{rbac.PermHRRead}, repo.overrides["p-1"])
}
