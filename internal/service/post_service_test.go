package service

import (
	"context"
	"testing"
	"time"

	"github.com/glevi2004/organically-sub001/internal/models"
)

type enqueuedJob struct {
	postID         int64
	organizationID int64
	fireTime       time.Time
}

type fakeDispatcher struct {
	scheduled []enqueuedJob
}

var _ ScheduleDispatcher = (*fakeDispatcher)(nil)

func (d *fakeDispatcher) Schedule(ctx context.Context, postID, organizationID int64, fireTime time.Time) error {
	d.scheduled = append(d.scheduled, enqueuedJob{postID: postID, organizationID: organizationID, fireTime: fireTime})
	return nil
}

func newPostFixture(post *models.Post, media []*models.PostMedia) (PostService, *fakePostRepo, *fakeDispatcher) {
	posts := &fakePostRepo{posts: map[int64]*models.Post{}}
	if post != nil {
		posts.posts[post.ID] = post
	}
	mediaRepo := &fakePostMediaRepo{media: map[int64][]*models.PostMedia{}}
	if post != nil {
		mediaRepo.media[post.ID] = media
	}
	dispatcher := &fakeDispatcher{}
	return NewPostService(nil, posts, mediaRepo, dispatcher), posts, dispatcher
}

func TestSchedulePost(t *testing.T) {
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusDraft}
	svc, posts, dispatcher := newPostFixture(post, imageMedia(1, "u1"))

	fireTime := time.Now().Add(time.Hour)
	if err := svc.Schedule(context.Background(), 1, 1, fireTime); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	stored, _ := posts.GetByID(context.Background(), 1)
	if stored.Status != models.PostStatusReady {
		t.Fatalf("expected post ready, got %s", stored.Status)
	}
	if stored.ScheduledDate == nil || !stored.ScheduledDate.Equal(fireTime) {
		t.Fatalf("expected scheduled date set, got %v", stored.ScheduledDate)
	}

	if len(dispatcher.scheduled) != 1 {
		t.Fatalf("expected one enqueued job, got %d", len(dispatcher.scheduled))
	}
	job := dispatcher.scheduled[0]
	if job.postID != 1 || !job.fireTime.Equal(fireTime) {
		t.Fatalf("job stamp must carry the fire time, got %+v", job)
	}
}

func TestRescheduleEnqueuesFreshJobWithoutCancelling(t *testing.T) {
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusDraft}
	svc, _, dispatcher := newPostFixture(post, imageMedia(1, "u1"))

	t1 := time.Now().Add(time.Hour)
	t2 := t1.Add(3 * time.Hour)
	if err := svc.Schedule(context.Background(), 1, 1, t1); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	if err := svc.Schedule(context.Background(), 1, 1, t2); err != nil {
		t.Fatalf("second schedule: %v", err)
	}

	// Both deliveries stay enqueued; the first one is invalidated by its
	// stamp, not by cancellation.
	if len(dispatcher.scheduled) != 2 {
		t.Fatalf("expected two enqueued jobs, got %d", len(dispatcher.scheduled))
	}
}

func TestScheduleRejectsPostWithoutMedia(t *testing.T) {
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusDraft}
	svc, _, dispatcher := newPostFixture(post, nil)

	if err := svc.Schedule(context.Background(), 1, 1, time.Now().Add(time.Hour)); err == nil {
		t.Fatalf("expected error for post without media")
	}
	if len(dispatcher.scheduled) != 0 {
		t.Fatalf("expected no enqueued jobs, got %d", len(dispatcher.scheduled))
	}
}

func TestScheduleRejectsPostedPost(t *testing.T) {
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusPosted}
	svc, _, _ := newPostFixture(post, imageMedia(1, "u1"))

	if err := svc.Schedule(context.Background(), 1, 1, time.Now().Add(time.Hour)); err == nil {
		t.Fatalf("expected error for already published post")
	}
}

func TestCancelRevertsToDraft(t *testing.T) {
	scheduled := time.Now().Add(time.Hour)
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusReady, ScheduledDate: &scheduled}
	svc, posts, _ := newPostFixture(post, imageMedia(1, "u1"))

	if err := svc.Cancel(context.Background(), 1, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stored, _ := posts.GetByID(context.Background(), 1)
	if stored.Status != models.PostStatusDraft || stored.ScheduledDate != nil {
		t.Fatalf("expected draft with cleared schedule, got %+v", stored)
	}
}

func TestCancelUnknownPost(t *testing.T) {
	svc, _, _ := newPostFixture(nil, nil)

	if err := svc.Cancel(context.Background(), 42, 1); err == nil {
		t.Fatalf("expected error for unknown post")
	}
}

func TestPostInfoEnforcesOwnership(t *testing.T) {
	post := &models.Post{ID: 1, OrganizationID: 1, Status: models.PostStatusDraft}
	svc, _, _ := newPostFixture(post, nil)

	if _, err := svc.PostInfo(context.Background(), 1, 2); err == nil {
		t.Fatalf("expected error for foreign organization")
	}
	if _, err := svc.PostInfo(context.Background(), 1, 1); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}
