package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/promoterhub/promoterhub/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACInvalidate drops one user's cached permission set.
	TaskRBACInvalidate = "rbac:permissions:invalidate"
	// TaskRBACPurge drops every cached permission set.
	TaskRBACPurge = "rbac:permissions:purge"
	// PurgeCronSpec runs the purge nightly at 03:00 UTC.
	PurgeCronSpec = "0 3 * * *"

	invalidateMaxRetry = 10
)

// InvalidatePayload identifies the user whose cached set is dropped.
type InvalidatePayload struct {
	UserID string `json:"user_id"`
}

// NewInvalidateTask constructs an Asynq task.
func NewInvalidateTask(userID string) (*asynq.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("jobs: invalidate task requires user id")
	}
	data, err := json.Marshal(InvalidatePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACInvalidate, data, asynq.MaxRetry(invalidateMaxRetry), asynq.Queue(QueueDefault)), nil
}

// NewPurgeTask constructs the scheduled purge task.
func NewPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskRBACPurge, nil, asynq.MaxRetry(3), asynq.Queue(QueueDefault))
}

// PermissionCache is the resolver surface the RBAC jobs drive.
type PermissionCache interface {
	Invalidate(ctx context.Context, userID string) error
	Purge(ctx context.Context) error
}

// RBACJobs handles permission cache maintenance tasks.
type RBACJobs struct {
	Cache   PermissionCache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRBACJobs wires the handlers.
func NewRBACJobs(cache PermissionCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *RBACJobs {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RBACJobs{Cache: cache, Logger: logger, Metrics: metrics}
}

// HandleInvalidate processes TaskRBACInvalidate tasks.
func (j *RBACJobs) HandleInvalidate(ctx context.Context, t *asynq.Task) (err error) {
	var payload InvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || strings.TrimSpace(payload.UserID) == "" {
		j.Logger.Warn("rbac invalidate: malformed payload", slog.Any("error", err))
		j.Metrics.Skip(TaskRBACInvalidate, "payload")
		return fmt.Errorf("rbac invalidate: malformed payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskRBACInvalidate)
	defer func() { err = tracker.End(err) }()

	if err := j.Cache.Invalidate(ctx, payload.UserID); err != nil {
		return err
	}
	j.Logger.Info("rbac permissions invalidated", slog.String("user_id", payload.UserID))
	return nil
}

// HandlePurge processes TaskRBACPurge tasks.
func (j *RBACJobs) HandlePurge(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskRBACPurge)
	defer func() { err = tracker.End(err) }()

	if err := j.Cache.Purge(ctx); err != nil {
		return err
	}
	j.Logger.Info("rbac permission cache purged")
	return nil
}

// TaskHandlers lists the handlers to register on the worker.
func (j *RBACJobs) TaskHandlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskRBACInvalidate, Handler: j.HandleInvalidate},
		{Type: TaskRBACPurge, Handler: j.HandlePurge},
	}
}

// CronEntries lists the scheduled RBAC tasks.
func CronEntries() []CronRegistration {
	return []CronRegistration{
		{Spec: PurgeCronSpec, Task: NewPurgeTask()},
	}
}
