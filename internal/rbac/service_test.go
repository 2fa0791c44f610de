package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(store Store, cache Cache) (*Resolver, *stubRecorder) {
	rec := &stubRecorder{}
	return NewResolver(ResolverOptions{Store: store, Cache: cache, Metrics: rec}), rec
}

func TestEmptySetDeniesEverything(t *testing.T) {
	resolver, _ := newTestResolver(newStubStore(), nil)
	ctx := context.Background()

	assert.Empty(t, resolver.UserPermissions(ctx, "ghost"))
	for _, p := range AllPermissions() {
		assert.False(t, resolver.HasPermission(ctx, "ghost", p), "permission %s", p)
	}
	assert.False(t, resolver.HasPermission(ctx, "ghost", "not:in:catalogue"))
}

func TestResolvedSetGrantsEveryMember(t *testing.T) {
	store := newStubStore()
	granted := []string{"contract:read:own", "promoter:update:own", "users:delete", "admin:all"}
	store.perms["u-1"] = granted
	resolver, _ := newTestResolver(store, nil)

	for _, p := range granted {
		assert.True(t, resolver.HasPermission(context.Background(), "u-1", Permission(p)), "permission %s", p)
	}
	assert.False(t, resolver.HasPermission(context.Background(), "u-1", PermHRManage))
}

func TestEmptyRequestedLists(t *testing.T) {
	store := newStubStore()
	store.roles["admin-user"] = []string{"admin"}
	resolver, _ := newTestResolver(store, nil)
	ctx := context.Background()

	for _, user := range []string{"admin-user", "nobody"} {
		assert.False(t, resolver.HasAnyPermission(ctx, user, nil), user)
		assert.False(t, resolver.HasAnyPermission(ctx, user, []Permission{}), user)
		assert.True(t, resolver.HasAllPermissions(ctx, user, nil), user)
		assert.True(t, resolver.HasAllPermissions(ctx, user, []Permission{}), user)
	}
}

func TestManagerScenario(t *testing.T) {
	store := newStubStore()
	store.roles["m-1"] = []string{"manager"}
	resolver, _ := newTestResolver(store, nil)
	ctx := context.Background()

	assert.True(t, resolver.HasPermission(ctx, "m-1", "contracts:create"))
	assert.False(t, resolver.HasPermission(ctx, "m-1", "users:delete"))
	assert.True(t, resolver.HasAnyPermission(ctx, "m-1", []Permission{"users:delete", "promoter:read"}))
	assert.False(t, resolver.HasAllPermissions(ctx, "m-1", []Permission{"users:delete", "promoter:read"}))
}

func TestUserPermissionsIsIdempotent(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"user", "promoter"}
	resolver, _ := newTestResolver(store, nil)
	ctx := context.Background()

	first := resolver.UserPermissions(ctx, "u-1")
	second := resolver.UserPermissions(ctx, "u-1")
	assert.ElementsMatch(t, first, second)
	require.NotEmpty(t, first)
}

func TestStoreFailureFailsClosed(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"admin"}
	store.err = errors.New("connection refused")
	resolver, rec := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	perms := resolver.UserPermissions(ctx, "u-1")
	require.NotNil(t, perms)
	assert.Empty(t, perms)
	assert.False(t, resolver.HasPermission(ctx, "u-1", PermAdminAll))
	assert.Equal(t, 2, rec.failures)

	// failures are not cached
	store.err = nil
	assert.True(t, resolver.HasPermission(ctx, "u-1", PermAdminAll))
}

func TestStorePanicFailsClosed(t *testing.T) {
	store := newStubStore()
	store.panicMsg = "driver exploded"
	resolver, _ := newTestResolver(store, nil)

	var perms []Permission
	require.NotPanics(t, func() {
		perms = resolver.UserPermissions(context.Background(), "u-1")
	})
	assert.Empty(t, perms)
}

func TestMalformedRowFailsClosed(t *testing.T) {
	store := newStubStore()
	store.perms["u-1"] = []string{"contracts:read", "payroll:run"}
	store.roles["u-1"] = []string{"admin"}
	resolver, _ := newTestResolver(store, nil)

	assert.Empty(t, resolver.UserPermissions(context.Background(), "u-1"))
	assert.False(t, resolver.HasPermission(context.Background(), "u-1", PermContractsRead))
}

func TestPrecomputedRowTakesPrecedenceOverRole(t *testing.T) {
	store := newStubStore()
	store.perms["u-1"] = []string{"reports:read", "reports:read"}
	store.roles["u-1"] = []string{"admin"}
	resolver, _ := newTestResolver(store, nil)

	perms := resolver.UserPermissions(context.Background(), "u-1")
	assert.Equal(t, []Permission{PermReportsRead}, perms)
}

func TestRolesAreExpandedAndDeduplicated(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"user", "promoter", "wizard"}
	resolver, _ := newTestResolver(store, nil)

	perms := resolver.UserPermissions(context.Background(), "u-1")
	seen := map[Permission]int{}
	for _, p := range perms {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "duplicate %s", p)
	}
	assert.Contains(t, perms, PermContractCreateOwn)
	assert.Contains(t, perms, PermPromoterUpdateOwn)
}

func TestBlankUserIDNeverHitsStore(t *testing.T) {
	store := newStubStore()
	resolver, _ := newTestResolver(store, nil)

	assert.Empty(t, resolver.UserPermissions(context.Background(), "   "))
	assert.Zero(t, store.calls())
}

func TestCacheServesRepeatLookups(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"manager"}
	resolver, rec := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	first := resolver.UserPermissions(ctx, "u-1")
	callsAfterFirst := store.calls()
	second := resolver.UserPermissions(ctx, "u-1")

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, store.calls())
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestInvalidateForcesReload(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"user"}
	resolver, _ := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	assert.False(t, resolver.HasPermission(ctx, "u-1", PermUsersRead))

	store.mu.Lock()
	store.roles["u-1"] = []string{"manager"}
	store.mu.Unlock()
	assert.False(t, resolver.HasPermission(ctx, "u-1", PermUsersRead), "stale entry expected before invalidation")

	require.NoError(t, resolver.Invalidate(ctx, "u-1"))
	assert.True(t, resolver.HasPermission(ctx, "u-1", PermUsersRead))

	assert.Error(t, resolver.Invalidate(ctx, ""))
}

func TestPurgeDropsAllEntries(t *testing.T) {
	store := newStubStore()
	store.roles["a"] = []string{"user"}
	store.roles["b"] = []string{"user"}
	resolver, _ := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	resolver.UserPermissions(ctx, "a")
	resolver.UserPermissions(ctx, "b")
	before := store.calls()

	require.NoError(t, resolver.Purge(ctx))
	resolver.UserPermissions(ctx, "a")
	resolver.UserPermissions(ctx, "b")
	assert.Greater(t, store.calls(), before)
}

func TestReturnedSetIsACopy(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"promoter"}
	resolver, _ := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	perms := resolver.UserPermissions(ctx, "u-1")
	require.NotEmpty(t, perms)
	perms[0] = PermAdminAll

	assert.False(t, resolver.HasPermission(ctx, "u-1", PermAdminAll))
}

// sharedCache hands out its backing slice on every Get.
type sharedCache struct {
	perms []Permission
}

func (c *sharedCache) Get(ctx context.Context, userID string) ([]Permission, bool, error) {
	return c.perms, c.perms != nil, nil
}

func (c *sharedCache) Set(ctx context.Context, userID string, perms []Permission) error {
	c.perms = perms
	return nil
}

func (c *sharedCache) Invalidate(ctx context.Context, userID string) error {
	c.perms = nil
	return nil
}

func (c *sharedCache) Purge(ctx context.Context) error {
	c.perms = nil
	return nil
}

func TestCacheHitReturnsCopy(t *testing.T) {
	store := newStubStore()
	cache := &sharedCache{perms: []Permission{PermPromoterReadOwn, PermContractReadOwn}}
	resolver, rec := newTestResolver(store, cache)
	ctx := context.Background()

	perms := resolver.UserPermissions(ctx, "u-1")
	require.Len(t, perms, 2)
	perms[0] = PermAdminAll
	_ = append(perms[:1], PermUsersDelete)

	assert.Equal(t, []Permission{PermPromoterReadOwn, PermContractReadOwn}, cache.perms)
	assert.False(t, resolver.HasPermission(ctx, "u-1", PermAdminAll))
	assert.False(t, resolver.HasPermission(ctx, "u-1", PermUsersDelete))
	assert.Zero(t, store.calls())
	assert.Equal(t, 3, rec.hits)
}

func TestConcurrentChecks(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"manager"}
	resolver, _ := newTestResolver(store, NewMemoryCache(16, time.Minute))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.HasPermission(ctx, "u-1", PermContractsCreate)
		}(i)
	}
	wg.Wait()
	for i, ok := range results {
		assert.True(t, ok, "goroutine %d", i)
	}
}

func TestCancelledContextDenies(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"admin"}
	resolver, _ := newTestResolver(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// either outcome of the select is acceptable; a cancelled request must
	// never see more than the real set.
	perms := resolver.UserPermissions(ctx, "u-1")
	assert.Subset(t, DefaultPermissionsForRole("admin"), perms)
}

func TestCheckReportsDecision(t *testing.T) {
	store := newStubStore()
	store.roles["u-1"] = []string{"user"}
	resolver, rec := newTestResolver(store, nil)

	decision := resolver.Check(context.Background(), "u-1", MatchAll, []Permission{PermContractReadOwn, PermUsersDelete})
	assert.False(t, decision.Allowed)
	assert.Equal(t, "u-1", decision.UserID)
	assert.Equal(t, []Permission{PermContractReadOwn}, decision.Matched)
	assert.Equal(t, 1, rec.denied)
}

func TestEvaluateDoesNotMutateGranted(t *testing.T) {
	granted := []Permission{PermUsersRead, PermUsersUpdate}
	snapshot := append([]Permission(nil), granted...)
	requested := []Permission{PermUsersUpdate}

	decision := Evaluate(granted, MatchAny, requested)
	assert.True(t, decision.Allowed)
	assert.Equal(t, snapshot, granted)

	decision.Requested[0] = PermAdminAll
	assert.Equal(t, PermUsersUpdate, requested[0])
}
