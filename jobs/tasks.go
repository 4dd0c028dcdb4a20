package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAlertsRefresh recomputes and caches the alert list.
	TaskAlertsRefresh = "alerts:refresh"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewAlertsRefreshTask constructs an alert refresh task. The task carries no
// payload; the handler always works from a fresh snapshot.
func NewAlertsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskAlertsRefresh, nil)
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
