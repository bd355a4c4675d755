package job

import (
	"context"
	"testing"
	"time"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/models"
	"github.com/glevi2004/organically-sub001/internal/repository"
)

type stubPostRepo struct {
	repository.PostRepository
	due []*models.Post
}

func (r *stubPostRepo) ListDueScheduled(ctx context.Context, since, until time.Time) ([]*models.Post, error) {
	return r.due, nil
}

type stubHistoryRepo struct {
	repository.PublishHistoryRepository
	records map[int64][]*models.PublishHistory
}

func (r *stubHistoryRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error) {
	return r.records[postID], nil
}

type scheduledJob struct {
	postID   int64
	fireTime time.Time
}

type stubDispatcher struct {
	scheduled []scheduledJob
}

func (d *stubDispatcher) Schedule(ctx context.Context, postID, organizationID int64, fireTime time.Time) error {
	d.scheduled = append(d.scheduled, scheduledJob{postID: postID, fireTime: fireTime})
	return nil
}

func TestScheduleRecoveryReEnqueuesOverduePosts(t *testing.T) {
	overdue := time.Now().Add(-10 * time.Minute)
	repo := &stubPostRepo{due: []*models.Post{
		{ID: 1, OrganizationID: 2, Status: models.PostStatusReady, ScheduledDate: &overdue},
		{ID: 3, OrganizationID: 2, Status: models.PostStatusReady, ScheduledDate: nil},
	}}
	dispatcher := &stubDispatcher{}

	jobRunner := NewScheduleRecoveryJob(config.Config{RecoveryLookback: time.Hour}, repo, &stubHistoryRepo{}, dispatcher)
	jobRunner.Run()

	if len(dispatcher.scheduled) != 1 {
		t.Fatalf("expected one re-enqueued job, got %d", len(dispatcher.scheduled))
	}
	job := dispatcher.scheduled[0]
	if job.postID != 1 || !job.fireTime.Equal(overdue) {
		t.Fatalf("re-enqueued job must keep the original stamp, got %+v", job)
	}
}

func TestScheduleRecoverySkipsAlreadyFailedDeliveries(t *testing.T) {
	overdue := time.Now().Add(-30 * time.Minute)
	repo := &stubPostRepo{due: []*models.Post{
		{ID: 1, OrganizationID: 2, Status: models.PostStatusReady, ScheduledDate: &overdue},
		{ID: 2, OrganizationID: 2, Status: models.PostStatusReady, ScheduledDate: &overdue},
	}}
	history := &stubHistoryRepo{records: map[int64][]*models.PublishHistory{
		// Post 1 already failed for this schedule and waits for a manual retry.
		1: {{PostID: 1, Outcome: models.PublishOutcomeFailed, CreatedAt: overdue.Add(time.Minute)}},
		// Post 2 failed under an earlier schedule only; the current one is fair game.
		2: {{PostID: 2, Outcome: models.PublishOutcomeFailed, CreatedAt: overdue.Add(-2 * time.Hour)}},
	}}
	dispatcher := &stubDispatcher{}

	jobRunner := NewScheduleRecoveryJob(config.Config{RecoveryLookback: time.Hour}, repo, history, dispatcher)
	jobRunner.Run()

	if len(dispatcher.scheduled) != 1 {
		t.Fatalf("expected one re-enqueued job, got %d", len(dispatcher.scheduled))
	}
	if dispatcher.scheduled[0].postID != 2 {
		t.Fatalf("expected only the unfailed post re-enqueued, got post %d", dispatcher.scheduled[0].postID)
	}
}
