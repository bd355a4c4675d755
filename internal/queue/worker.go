package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/glevi2004/organically-sub001/internal/service"
)

type Worker struct {
	ps service.PublishService
}

func NewWorker(ps service.PublishService) *Worker {
	return &Worker{ps: ps}
}

func (w *Worker) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishScheduled, w.HandlePublishTask)
	return mux
}

func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode publish payload: %v: %w", err, asynq.SkipRetry)
	}

	result := w.ps.ScheduledPublish(ctx, payload.PostID, payload.OrganizationID, payload.ScheduledAt)

	if result.Skipped {
		slog.Info("publish task skipped", "post_id", payload.PostID, "reason", result.Message)
		return nil
	}
	if !result.Success {
		// Step-level retries already ran inside the orchestrator. Archiving
		// the task keeps the failure visible without re-running provider
		// calls; the post stays ready for a manual retry.
		return fmt.Errorf("publish post %d failed: %s: %w",
			payload.PostID, result.Message, asynq.SkipRetry)
	}

	slog.Info("publish task completed",
		"post_id", payload.PostID, "published_media_id", result.PublishedMediaID)
	return nil
}
