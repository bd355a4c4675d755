package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/models"
	"github.com/glevi2004/organically-sub001/internal/repository"
	"github.com/glevi2004/organically-sub001/internal/stepcache"
	"github.com/glevi2004/organically-sub001/internal/transfer"
	"github.com/glevi2004/organically-sub001/pkg/utils"
)

// Step names used as checkpoint keys. A job re-run resumes after the last
// completed step, which is what makes the side-effecting provider calls safe
// to drive from an at-least-once queue.
const (
	stepContainer     = "container"
	stepAwaitReady    = "await_ready"
	stepChildren      = "child_containers"
	stepAwaitChildren = "await_children"
	stepCarousel      = "carousel"
	stepPublish       = "publish"
)

const stepDone = "ok"

// errSuperseded signals that the post left its observed state while the
// pipeline was running, usually because an overlapping delivery for the same
// post already won.
var errSuperseded = errors.New("post state changed mid-flight")

type PublishService interface {
	// ScheduledPublish is invoked by the queue at the stamped fire time. It
	// never returns an error: skips and failures are reported through the
	// JobResult and the publish history, and the caller decides what the
	// queue should do with a failed job.
	ScheduledPublish(ctx context.Context, postID, organizationID int64, stamp time.Time) transfer.JobResult
	// PublishNow runs the container/publish steps immediately for the given
	// post, without any schedule stamp involved.
	PublishNow(ctx context.Context, postID, organizationID int64) transfer.JobResult
}

type publishService struct {
	cfg   config.Config
	pr    repository.PostRepository
	pm    repository.PostMediaRepository
	cr    repository.ChannelRepository
	ph    repository.PublishHistoryRepository
	ig    InstagramService
	steps stepcache.Cache
}

func NewPublishService(
	cfg config.Config,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	cr repository.ChannelRepository,
	ph repository.PublishHistoryRepository,
	ig InstagramService,
	steps stepcache.Cache) PublishService {
	return &publishService{
		cfg:   cfg,
		pr:    pr,
		pm:    pm,
		cr:    cr,
		ph:    ph,
		ig:    ig,
		steps: steps,
	}
}

func (s *publishService) ScheduledPublish(ctx context.Context, postID, organizationID int64, stamp time.Time) transfer.JobResult {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return s.failed(ctx, postID, organizationID, 0, models.PublishTriggerScheduled,
			fmt.Errorf("fetching post: %w", err))
	}
	if post == nil {
		// The post was deleted after scheduling. Nothing to retry, nothing to
		// revert; log and stop.
		slog.Warn("scheduled publish: post missing", "post_id", postID)
		return transfer.JobResult{Message: string(CodePostMissing)}
	}

	// Validation failures here are expected outcomes of users editing posts
	// while a schedule is in flight, so they skip silently.
	if post.Status != models.PostStatusReady {
		slog.Info("scheduled publish: post no longer ready, skipping",
			"post_id", postID, "status", post.Status)
		return transfer.JobResult{Success: true, Skipped: true, Message: "post no longer ready"}
	}

	if post.ScheduledDate == nil || absDuration(post.ScheduledDate.Sub(stamp)) > s.cfg.StampTolerance {
		// The post was rescheduled after this job was enqueued. The job
		// carrying the new stamp will do the work.
		slog.Info("scheduled publish: stale schedule stamp, skipping",
			"post_id", postID, "stamp", stamp)
		return transfer.JobResult{Success: true, Skipped: true, Message: "stale schedule stamp"}
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return s.failed(ctx, postID, organizationID, 0, models.PublishTriggerScheduled,
			fmt.Errorf("fetching post media: %w", err))
	}
	if len(media) == 0 {
		slog.Info("scheduled publish: post has no media, skipping", "post_id", postID)
		return transfer.JobResult{Success: true, Skipped: true, Message: "post has no media"}
	}

	jobKey := fmt.Sprintf("%d:%d", postID, stamp.Unix())
	return s.execute(ctx, post, media, jobKey, models.PublishTriggerScheduled, &stamp)
}

func (s *publishService) PublishNow(ctx context.Context, postID, organizationID int64) transfer.JobResult {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return s.failed(ctx, postID, organizationID, 0, models.PublishTriggerManual,
			fmt.Errorf("fetching post: %w", err))
	}
	if post == nil || post.OrganizationID != organizationID {
		return transfer.JobResult{Message: string(CodePostMissing)}
	}
	if post.Status == models.PostStatusPosted {
		return transfer.JobResult{Success: true, Skipped: true,
			PublishedMediaID: post.PublishedMediaID, Message: "already posted"}
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return s.failed(ctx, postID, organizationID, 0, models.PublishTriggerManual,
			fmt.Errorf("fetching post media: %w", err))
	}
	if len(media) == 0 {
		return s.failed(ctx, postID, organizationID, 0, models.PublishTriggerManual,
			newPublishError(CodeInvalidMediaCount, false, "post has no media"))
	}

	jobKey := fmt.Sprintf("manual:%d", postID)
	return s.execute(ctx, post, media, jobKey, models.PublishTriggerManual, nil)
}

// execute drives the container build, readiness wait, carousel assembly,
// publish, and record steps for a validated post.
func (s *publishService) execute(ctx context.Context, post *models.Post, media []*models.PostMedia, jobKey, trigger string, stamp *time.Time) transfer.JobResult {
	channel, err := s.cr.GetActiveChannel(ctx, post.OrganizationID, models.PlatformInstagram)
	if err != nil {
		return s.failed(ctx, post.ID, post.OrganizationID, 0, trigger,
			fmt.Errorf("fetching channel: %w", err))
	}
	if channel == nil {
		return s.failed(ctx, post.ID, post.OrganizationID, 0, trigger,
			newPublishError(CodeNoChannel, false, "no active instagram channel for organization %d", post.OrganizationID))
	}
	if !channel.TokenExpiresAt.IsZero() && channel.TokenExpiresAt.Before(time.Now()) {
		return s.failed(ctx, post.ID, post.OrganizationID, channel.ID, trigger,
			newPublishError(CodeAuthFailure, false, "channel %d token expired at %s", channel.ID, channel.TokenExpiresAt))
	}

	accessToken, err := utils.Decrypt(channel.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return s.failed(ctx, post.ID, post.OrganizationID, channel.ID, trigger,
			newPublishError(CodeAuthFailure, false, "decrypting channel token: %w", err))
	}

	publishedMediaID, err := s.runPipeline(ctx, jobKey, post, media, channel, accessToken, stamp)
	if err != nil {
		if errors.Is(err, errSuperseded) {
			slog.Info("publish superseded mid-flight, skipping", "post_id", post.ID)
			s.record(ctx, post.ID, post.OrganizationID, channel.ID, trigger,
				models.PublishOutcomeSkipped, "post status changed mid-flight")
			return transfer.JobResult{Success: true, Skipped: true, Message: "post status changed mid-flight"}
		}
		return s.failed(ctx, post.ID, post.OrganizationID, channel.ID, trigger, err)
	}

	updated, err := s.pr.MarkPosted(ctx, post.ID, publishedMediaID, time.Now(), post.Status)
	if err != nil {
		// The publish already happened; the checkpoint keeps a redelivery
		// from publishing twice, so surface the record failure loudly.
		slog.Error("publish recorded on provider but post update failed",
			"post_id", post.ID, "published_media_id", publishedMediaID, "error", err)
		return s.failed(ctx, post.ID, post.OrganizationID, channel.ID, trigger,
			fmt.Errorf("recording publish result: %w", err))
	}
	if !updated {
		slog.Info("publish record lost the status race, skipping", "post_id", post.ID)
		s.record(ctx, post.ID, post.OrganizationID, channel.ID, trigger,
			models.PublishOutcomeSkipped, "post status changed mid-flight")
		return transfer.JobResult{Success: true, Skipped: true, Message: "post status changed mid-flight"}
	}

	if err := s.steps.Clear(ctx, jobKey); err != nil {
		slog.Warn("clearing step cache failed", "job_key", jobKey, "error", err)
	}

	s.record(ctx, post.ID, post.OrganizationID, channel.ID, trigger, models.PublishOutcomePublished, "")
	slog.Info("post published", "post_id", post.ID, "published_media_id", publishedMediaID)

	return transfer.JobResult{Success: true, PublishedMediaID: publishedMediaID}
}

func (s *publishService) runPipeline(ctx context.Context, jobKey string, post *models.Post, media []*models.PostMedia, channel *models.Channel, accessToken string, stamp *time.Time) (string, error) {
	var containerID string
	var err error

	if len(media) == 1 {
		containerID, err = s.buildSingleContainer(ctx, jobKey, post, media[0], channel, accessToken)
	} else {
		containerID, err = s.buildCarouselContainer(ctx, jobKey, post, media, channel, accessToken)
	}
	if err != nil {
		return "", err
	}

	// media_publish is irreversible, so re-check the post right before it: an
	// overlapping delivery may have published while containers were building,
	// and the status CAS afterwards can only detect that, not prevent it. A
	// checkpointed publish already happened in this job and is exempt.
	if _, done, _ := s.steps.Get(ctx, jobKey, stepPublish); !done {
		ok, err := s.stillPublishable(ctx, post, stamp)
		if err != nil {
			return "", fmt.Errorf("re-checking post before publish: %w", err)
		}
		if !ok {
			return "", errSuperseded
		}
	}

	return s.runStep(ctx, jobKey, stepPublish, func(ctx context.Context) (string, error) {
		return s.ig.PublishMediaContainer(ctx, accessToken, channel.AccountID, containerID)
	})
}

// stillPublishable re-fetches the post and confirms it is still in the state
// observed at entry: same status, and for scheduled jobs a scheduled date
// that still matches the stamp.
func (s *publishService) stillPublishable(ctx context.Context, post *models.Post, stamp *time.Time) (bool, error) {
	current, err := s.pr.GetByID(ctx, post.ID)
	if err != nil {
		return false, err
	}
	if current == nil || current.Status != post.Status {
		return false, nil
	}
	if stamp != nil {
		if current.ScheduledDate == nil || absDuration(current.ScheduledDate.Sub(*stamp)) > s.cfg.StampTolerance {
			return false, nil
		}
	}
	return true, nil
}

func (s *publishService) buildSingleContainer(ctx context.Context, jobKey string, post *models.Post, item *models.PostMedia, channel *models.Channel, accessToken string) (string, error) {
	containerID, err := s.runStep(ctx, jobKey, stepContainer, func(ctx context.Context) (string, error) {
		if item.MediaType == models.MediaTypeVideo {
			return s.ig.CreateVideoContainer(ctx, accessToken, channel.AccountID, item.MediaURL, post.Caption)
		}
		return s.ig.CreateImageContainer(ctx, accessToken, channel.AccountID, item.MediaURL, post.Caption)
	})
	if err != nil {
		return "", err
	}

	// Images are publishable immediately; only video containers process
	// asynchronously.
	if item.MediaType == models.MediaTypeVideo {
		_, err = s.runStep(ctx, jobKey, stepAwaitReady, func(ctx context.Context) (string, error) {
			return stepDone, s.ig.WaitForContainerReady(ctx, accessToken, containerID)
		})
		if err != nil {
			return "", err
		}
	}

	return containerID, nil
}

func (s *publishService) buildCarouselContainer(ctx context.Context, jobKey string, post *models.Post, media []*models.PostMedia, channel *models.Channel, accessToken string) (string, error) {
	joined, err := s.runStep(ctx, jobKey, stepChildren, func(ctx context.Context) (string, error) {
		childIDs := make([]string, len(media))
		g, gctx := errgroup.WithContext(ctx)
		for i, item := range media {
			i, item := i, item
			g.Go(func() error {
				id, err := s.ig.CreateCarouselItemContainer(gctx, accessToken, channel.AccountID, item.MediaURL, item.MediaType)
				if err != nil {
					return err
				}
				childIDs[i] = id
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		return strings.Join(childIDs, ","), nil
	})
	if err != nil {
		return "", err
	}
	childIDs := strings.Split(joined, ",")

	_, err = s.runStep(ctx, jobKey, stepAwaitChildren, func(ctx context.Context) (string, error) {
		for i, item := range media {
			if item.MediaType != models.MediaTypeVideo {
				continue
			}
			if err := s.ig.WaitForContainerReady(ctx, accessToken, childIDs[i]); err != nil {
				return "", err
			}
		}
		return stepDone, nil
	})
	if err != nil {
		return "", err
	}

	return s.runStep(ctx, jobKey, stepCarousel, func(ctx context.Context) (string, error) {
		return s.ig.CreateCarouselContainer(ctx, accessToken, channel.AccountID, childIDs, post.Caption)
	})
}

// runStep executes one pipeline step, retrying retryable errors a bounded
// number of times and checkpointing the result so a re-run of the job skips
// it entirely.
func (s *publishService) runStep(ctx context.Context, jobKey, name string, fn func(ctx context.Context) (string, error)) (string, error) {
	if cached, ok, err := s.steps.Get(ctx, jobKey, name); err == nil && ok {
		slog.Info("publish step already completed, reusing result", "job_key", jobKey, "step", name)
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.StepRetryLimit; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if err := s.steps.Set(ctx, jobKey, name, result); err != nil {
				slog.Warn("checkpointing step failed", "job_key", jobKey, "step", name, "error", err)
			}
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return "", fmt.Errorf("step %s: %w", name, err)
		}

		slog.Warn("publish step failed, retrying",
			"job_key", jobKey, "step", name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * s.cfg.StepRetryBackoff):
		}
	}

	return "", fmt.Errorf("step %s exhausted retries: %w", name, lastErr)
}

func (s *publishService) failed(ctx context.Context, postID, organizationID, channelID int64, trigger string, err error) transfer.JobResult {
	slog.Error("publish job failed", "post_id", postID, "trigger", trigger, "error", err)
	s.record(ctx, postID, organizationID, channelID, trigger, models.PublishOutcomeFailed, err.Error())
	return transfer.JobResult{Message: err.Error()}
}

func (s *publishService) record(ctx context.Context, postID, organizationID, channelID int64, trigger, outcome, errMessage string) {
	history := models.PublishHistory{
		OrganizationID: organizationID,
		PostID:         postID,
		ChannelID:      channelID,
		Trigger:        trigger,
		Outcome:        outcome,
		ErrorMessage:   errMessage,
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Error("saving publish history failed", "post_id", postID, "error", err)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
