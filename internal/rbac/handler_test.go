package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store *stubStore, cache Cache) http.Handler {
	resolver := NewResolver(ResolverOptions{Store: store, Cache: cache})
	mw := Middleware{Resolver: resolver, Identity: headerIdentity}
	r := chi.NewRouter()
	r.Route("/rbac", NewHandler(nil, resolver, mw).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMyPermissions(t *testing.T) {
	store := newStubStore()
	store.roles["p-1"] = []string{"promoter"}
	router := newTestRouter(store, nil)

	rr := do(t, router, http.MethodGet, "/rbac/me/permissions", "p-1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp permissionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "p-1", resp.UserID)
	assert.Contains(t, resp.Permissions, "promoter:update:own")
	assert.IsNonDecreasing(t, resp.Permissions)

	rr = do(t, router, http.MethodGet, "/rbac/me/permissions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMyPermissionsForUnknownUserIsEmptyList(t *testing.T) {
	router := newTestRouter(newStubStore(), nil)

	rr := do(t, router, http.MethodGet, "/rbac/me/permissions", "ghost", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"permissions":[]`)
}

func TestCheckMine(t *testing.T) {
	store := newStubStore()
	store.roles["m-1"] = []string{"manager"}
	router := newTestRouter(store, nil)

	cases := []struct {
		name    string
		body    string
		status  int
		allowed bool
	}{
		{"any match", `{"permissions":["users:delete","promoter:read"]}`, http.StatusOK, true},
		{"all mismatch", `{"permissions":["users:delete","promoter:read"],"mode":"all"}`, http.StatusOK, false},
		{"unknown permission", `{"permissions":["payroll:run"]}`, http.StatusBadRequest, false},
		{"empty list", `{"permissions":[]}`, http.StatusBadRequest, false},
		{"bad mode", `{"permissions":["users:read"],"mode":"some"}`, http.StatusBadRequest, false},
		{"bad json", `{"permissions":`, http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/rbac/me/check", "m-1", tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.status != http.StatusOK {
				return
			}
			var resp checkResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.allowed, resp.Allowed)
		})
	}
}

func TestRolePermissionsRequiresRolesRead(t *testing.T) {
	store := newStubStore()
	store.roles["m-1"] = []string{"manager"}
	store.roles["p-1"] = []string{"promoter"}
	router := newTestRouter(store, nil)

	rr := do(t, router, http.MethodGet, "/rbac/roles/manager/permissions", "p-1", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodGet, "/rbac/roles/manager/permissions", "m-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp permissionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "manager", resp.Role)
	assert.Contains(t, resp.Permissions, "contracts:create")
	assert.NotContains(t, resp.Permissions, "users:delete")

	rr = do(t, router, http.MethodGet, "/rbac/roles/wizard/permissions", "m-1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvalidateUserRequiresAdmin(t *testing.T) {
	store := newStubStore()
	store.roles["admin-1"] = []string{"admin"}
	store.roles["m-1"] = []string{"manager"}
	store.roles["u-1"] = []string{"user"}
	cache := NewMemoryCache(16, time.Minute)
	router := newTestRouter(store, cache)

	rr := do(t, router, http.MethodPost, "/rbac/users/u-1/invalidate", "m-1", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodGet, "/rbac/me/permissions", "u-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	_, cached, _ := cache.Get(t.Context(), "u-1")
	require.True(t, cached)

	rr = do(t, router, http.MethodPost, "/rbac/users/u-1/invalidate", "admin-1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, cached, _ = cache.Get(t.Context(), "u-1")
	assert.False(t, cached)
}
