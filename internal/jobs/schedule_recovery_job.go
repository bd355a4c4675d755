package job

import (
	"context"
	"log/slog"
	"time"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/models"
	"github.com/glevi2004/organically-sub001/internal/queue"
	"github.com/glevi2004/organically-sub001/internal/repository"
)

// ScheduleRecoveryJob re-enqueues publish jobs for ready posts whose fire time
// already passed without a successful delivery, e.g. after Redis data loss or
// a long restart. Re-enqueueing an already-delivered schedule is harmless: the
// stamp still matches, but the post is either posted or mid-flight, and the
// orchestrator skips or the status CAS settles it.
type ScheduleRecoveryJob struct {
	cfg        config.Config
	pr         repository.PostRepository
	ph         repository.PublishHistoryRepository
	dispatcher queue.Dispatcher
}

func NewScheduleRecoveryJob(cfg config.Config, pr repository.PostRepository, ph repository.PublishHistoryRepository, dispatcher queue.Dispatcher) *ScheduleRecoveryJob {
	return &ScheduleRecoveryJob{
		cfg:        cfg,
		pr:         pr,
		ph:         ph,
		dispatcher: dispatcher,
	}
}

func (j *ScheduleRecoveryJob) Run() {
	ctx := context.Background()

	now := time.Now()
	since := now.Add(-j.cfg.RecoveryLookback)

	posts, err := j.pr.ListDueScheduled(ctx, since, now)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range posts {
		if post.ScheduledDate == nil {
			continue
		}

		failed, err := j.hasFailureForStamp(ctx, post.ID, *post.ScheduledDate)
		if err != nil {
			slog.Error("recovery history lookup failed", "post_id", post.ID, "error", err)
			continue
		}
		if failed {
			// The delivery ran and failed terminally. The post stays ready for
			// a manual retry; sweeping it again would just repeat the same
			// provider error every five minutes.
			continue
		}

		if err := j.dispatcher.Schedule(ctx, post.ID, post.OrganizationID, *post.ScheduledDate); err != nil {
			slog.Error("recovery enqueue failed", "post_id", post.ID, "error", err)
			continue
		}

		slog.Info("re-enqueued overdue scheduled post",
			"post_id", post.ID, "scheduled_date", post.ScheduledDate)
	}
}

// hasFailureForStamp reports whether a delivery for the current schedule
// already failed. History rows written before the scheduled date belong to an
// earlier schedule of the same post and do not count.
func (j *ScheduleRecoveryJob) hasFailureForStamp(ctx context.Context, postID int64, scheduledDate time.Time) (bool, error) {
	history, err := j.ph.ListByPostID(ctx, postID)
	if err != nil {
		return false, err
	}
	for _, record := range history {
		if record.Outcome == models.PublishOutcomeFailed && !record.CreatedAt.Before(scheduledDate) {
			return true, nil
		}
	}
	return false, nil
}
