package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Dispatcher delivers a publish job to the worker at the post's fire time.
// Scheduling again for the same post simply enqueues a second delivery with a
// newer stamp; the stale one skips itself during validation.
type Dispatcher interface {
	Schedule(ctx context.Context, postID, organizationID int64, fireTime time.Time) error
}

type asynqDispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) Dispatcher {
	return &asynqDispatcher{client: client}
}

func (d *asynqDispatcher) Schedule(ctx context.Context, postID, organizationID int64, fireTime time.Time) error {
	payload := PublishPayload{
		PostID:         postID,
		OrganizationID: organizationID,
		ScheduledAt:    fireTime,
	}
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal publish payload: %w", err)
	}

	task := asynq.NewTask(TaskTypePublishScheduled, taskPayload)

	_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(fireTime), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("enqueue publish task: %w", err)
	}

	slog.Info("publish task scheduled", "post_id", postID, "fire_time", fireTime)
	return nil
}
