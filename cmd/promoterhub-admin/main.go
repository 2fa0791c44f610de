package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/promoterhub/promoterhub/cmd/promoterhub-admin/cli"
	"github.com/promoterhub/promoterhub/internal/app"
	"github.com/promoterhub/promoterhub/internal/platform/cache"
	"github.com/promoterhub/promoterhub/internal/platform/db"
	"github.com/promoterhub/promoterhub/internal/rbac"
	"github.com/promoterhub/promoterhub/internal/users"
	"github.com/promoterhub/promoterhub/jobs"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadBackendConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return cli.ExitError
	}
	logger := app.NewLoggerWriter(os.Stderr, cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return cli.ExitError
	}
	defer pool.Close()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return cli.ExitError
	}
	defer redisClient.Close()

	jobClient, err := jobs.NewClient(redisOpts.AsynqOpt())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return cli.ExitError
	}
	defer jobClient.Close()

	resolver := app.NewResolver(cfg, rbac.NewStore(pool), redisClient, logger, nil)
	usersService := users.NewService(users.NewRepository(pool), resolver, jobClient, logger)

	return cli.NewAdminCLI(usersService, resolver, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
}
