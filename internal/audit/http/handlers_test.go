package audithttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoterhub/promoterhub/internal/audit"
	"github.com/promoterhub/promoterhub/internal/rbac"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
	calls       int
	err         error
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.calls++
	s.lastFilters = filters
	return s.result, s.err
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.calls++
	s.lastFilters = filters
	return s.exportRows, nil
}

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

func newAuditRouter(service *stubTimelineService) http.Handler {
	resolver := rbac.NewResolver(rbac.ResolverOptions{Store: roleStore{
		"admin-1":    rbac.RoleAdmin,
		"promoter-1": rbac.RolePromoter,
	}})
	handler := NewHandler(nil, service, rbac.Middleware{Resolver: resolver, Identity: headerIdentity})
	handler.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", handler.MountRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTimelineRequiresAuditRead(t *testing.T) {
	service := &stubTimelineService{}
	router := newAuditRouter(service)

	rec := get(t, router, "/audit", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, router, "/audit", "promoter-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, service.calls)
}

func TestTimelineReturnsRows(t *testing.T) {
	rows := []audit.TimelineRow{{At: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), Actor: "admin-1", Action: "role.changed", Entity: "profiles", EntityID: "u-1"}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	router := newAuditRouter(service)

	rec := get(t, router, "/audit?from=2024-03-01&to=2024-03-15&action=role.changed", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body audit.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "admin-1", body.Rows[0].Actor)
	assert.Equal(t, "2024-03-01", service.lastFilters.From.Format(dateLayout))
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), service.lastFilters.To)
	assert.Equal(t, "role.changed", service.lastFilters.Action)
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	service := &stubTimelineService{}
	router := newAuditRouter(service)

	rec := get(t, router, "/audit", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-08", service.lastFilters.From.Format(dateLayout))
	assert.Equal(t, defaultPageSize, service.lastFilters.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newAuditRouter(&stubTimelineService{})
	for _, path := range []string{
		"/audit?from=yesterday",
		"/audit?from=2024-03-10&to=2024-03-01",
		"/audit?from=2023-01-01&to=2024-03-01",
		"/audit?page=0",
		"/audit?page=10001",
		"/audit?page=50000000",
		"/audit?page_size=abc",
	} {
		rec := get(t, router, path, "admin-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), path)
	}
}

func TestTimelinePageBounds(t *testing.T) {
	service := &stubTimelineService{}
	router := newAuditRouter(service)

	rec := get(t, router, "/audit?page=10000", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, audit.MaxPage, service.lastFilters.Page)

	rec = get(t, router, "/audit?page=50000000", "admin-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid page")
	assert.Equal(t, 1, service.calls)

	service.err = fmt.Errorf("%w: 10001", audit.ErrPageOutOfRange)
	rec = get(t, router, "/audit?page=2", "admin-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid page")
}

func TestExportCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{Actor: "admin-1", Action: "role.changed", Entity: "profiles", EntityID: "u-1"}}}
	router := newAuditRouter(service)

	rec := get(t, router, "/audit/export.csv?from=2024-03-01&to=2024-03-05", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "occurred_at,actor_id"))
	assert.Contains(t, rec.Body.String(), "role.changed")
}

func TestExportIsRateLimited(t *testing.T) {
	router := newAuditRouter(&stubTimelineService{})
	for i := 0; i < rateLimit; i++ {
		rec := get(t, router, "/audit/export.csv", "admin-1")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := get(t, router, "/audit/export.csv", "admin-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
