package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/glevi2004/organically-sub001/internal/transfer"
)

type fakePublisher struct {
	result transfer.JobResult
	calls  []PublishPayload
}

func (f *fakePublisher) ScheduledPublish(ctx context.Context, postID, organizationID int64, stamp time.Time) transfer.JobResult {
	f.calls = append(f.calls, PublishPayload{PostID: postID, OrganizationID: organizationID, ScheduledAt: stamp})
	return f.result
}

func (f *fakePublisher) PublishNow(ctx context.Context, postID, organizationID int64) transfer.JobResult {
	return f.result
}

func publishTask(t *testing.T, payload PublishPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(TaskTypePublishScheduled, data)
}

func TestHandlePublishTaskSuccess(t *testing.T) {
	publisher := &fakePublisher{result: transfer.JobResult{Success: true, PublishedMediaID: "m-1"}}
	worker := NewWorker(publisher)

	stamp := time.Now().Truncate(time.Second)
	task := publishTask(t, PublishPayload{PostID: 5, OrganizationID: 2, ScheduledAt: stamp})

	if err := worker.HandlePublishTask(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(publisher.calls) != 1 {
		t.Fatalf("expected one orchestrator call, got %d", len(publisher.calls))
	}
	call := publisher.calls[0]
	if call.PostID != 5 || call.OrganizationID != 2 || !call.ScheduledAt.Equal(stamp) {
		t.Fatalf("payload not forwarded: %+v", call)
	}
}

func TestHandlePublishTaskSkipIsNotAnError(t *testing.T) {
	publisher := &fakePublisher{result: transfer.JobResult{Success: true, Skipped: true, Message: "stale"}}
	worker := NewWorker(publisher)

	task := publishTask(t, PublishPayload{PostID: 5, OrganizationID: 2, ScheduledAt: time.Now()})

	if err := worker.HandlePublishTask(context.Background(), task); err != nil {
		t.Fatalf("skips must not error the queue, got %v", err)
	}
}

func TestHandlePublishTaskFailureArchives(t *testing.T) {
	publisher := &fakePublisher{result: transfer.JobResult{Message: "no_channel"}}
	worker := NewWorker(publisher)

	task := publishTask(t, PublishPayload{PostID: 5, OrganizationID: 2, ScheduledAt: time.Now()})

	err := worker.HandlePublishTask(context.Background(), task)
	if err == nil {
		t.Fatalf("expected error for failed job")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("failed jobs should skip queue retries, got %v", err)
	}
}

func TestHandlePublishTaskBadPayload(t *testing.T) {
	worker := NewWorker(&fakePublisher{})

	task := asynq.NewTask(TaskTypePublishScheduled, []byte("{not json"))

	err := worker.HandlePublishTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("undecodable payload should not be retried, got %v", err)
	}
}
