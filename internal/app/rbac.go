package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/promoterhub/promoterhub/internal/rbac"
)

// NewPermissionCache selects the resolver cache backend from configuration.
func NewPermissionCache(cfg *BackendConfig, client *redis.Client) rbac.Cache {
	if cfg.RBACCacheBackend == CacheBackendMemory || client == nil {
		return rbac.NewMemoryCache(cfg.RBACCacheSize, cfg.RBACCacheTTL)
	}
	return rbac.NewRedisCache(client, cfg.RBACCacheTTL)
}

// NewResolver wires the permission resolver with the configured cache.
func NewResolver(cfg *BackendConfig, store rbac.Store, client *redis.Client, logger *slog.Logger, metrics rbac.Recorder) *rbac.Resolver {
	cache := NewPermissionCache(cfg, client)
	logger.Info("rbac resolver configured",
		slog.String("cache_backend", cfg.RBACCacheBackend),
		slog.Duration("cache_ttl", cfg.RBACCacheTTL),
	)
	return rbac.NewResolver(rbac.ResolverOptions{
		Store:   store,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
	})
}
