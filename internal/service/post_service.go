package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glevi2004/organically-sub001/internal/models"
	"github.com/glevi2004/organically-sub001/internal/repository"
	"github.com/glevi2004/organically-sub001/internal/transfer"
)

// ScheduleDispatcher arranges a publish job delivery at the given fire time.
// The queue package provides the asynq-backed implementation.
type ScheduleDispatcher interface {
	Schedule(ctx context.Context, postID, organizationID int64, fireTime time.Time) error
}

type PostService interface {
	CreatePost(ctx context.Context, organizationID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, organizationID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, organizationID int64) (*models.Post, error)
	Schedule(ctx context.Context, postID, organizationID int64, scheduledDate time.Time) error
	Cancel(ctx context.Context, postID, organizationID int64) error
	Remove(ctx context.Context, postID, organizationID int64) error
}

type postService struct {
	db         *sql.DB
	pr         repository.PostRepository
	pm         repository.PostMediaRepository
	dispatcher ScheduleDispatcher
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	dispatcher ScheduleDispatcher) PostService {
	return &postService{
		db:         db,
		pr:         pr,
		pm:         pm,
		dispatcher: dispatcher,
	}
}

func (s *postService) CreatePost(ctx context.Context, organizationID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}

	for _, item := range pc.Media {
		if item.MediaType != models.MediaTypeImage && item.MediaType != models.MediaTypeVideo {
			err := fmt.Errorf("unsupported media type %q", item.MediaType)
			slog.Info(err.Error())
			return 0, err
		}
		if item.MediaURL == "" {
			err := errors.New("media url cannot be empty")
			slog.Info(err.Error())
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		OrganizationID: organizationID,
		Caption:        pc.Caption,
		Status:         models.PostStatusDraft,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	for i, item := range pc.Media {
		postMedia := models.PostMedia{
			PostID:       postID,
			MediaType:    item.MediaType,
			MediaURL:     item.MediaURL,
			DisplayOrder: i,
		}
		if err = s.pm.Create(ctx, tx, &postMedia); err != nil {
			return 0, fmt.Errorf("error saving post media: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, nil
}

// Schedule marks the post ready at the given date and arranges a delivery at
// that time. Rescheduling enqueues a fresh delivery with the new stamp; the
// earlier one skips itself, so nothing needs cancelling here.
func (s *postService) Schedule(ctx context.Context, postID, organizationID int64, scheduledDate time.Time) error {
	post, err := s.ownedPost(ctx, postID, organizationID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPosted {
		err = errors.New("post is already published")
		slog.Info(err.Error())
		return err
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(media) == 0 {
		err = errors.New("post has no media to publish")
		slog.Info(err.Error())
		return err
	}

	if err := s.pr.SetSchedule(ctx, postID, scheduledDate); err != nil {
		return fmt.Errorf("error scheduling post: %w", err)
	}

	if err := s.dispatcher.Schedule(ctx, postID, organizationID, scheduledDate); err != nil {
		return fmt.Errorf("error enqueueing publish task: %w", err)
	}

	return nil
}

// Cancel reverts the post to draft and clears the scheduled date. Any timer
// delivery already in flight notices the status change and skips.
func (s *postService) Cancel(ctx context.Context, postID, organizationID int64) error {
	post, err := s.ownedPost(ctx, postID, organizationID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPosted {
		err = errors.New("post is already published")
		slog.Info(err.Error())
		return err
	}

	if err := s.pr.ClearSchedule(ctx, postID); err != nil {
		return fmt.Errorf("error cancelling schedule: %w", err)
	}

	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, organizationID int64) (*models.Post, error) {
	return s.ownedPost(ctx, postID, organizationID)
}

func (s *postService) List(ctx context.Context, organizationID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, postID, organizationID int64) error {
	if _, err := s.ownedPost(ctx, postID, organizationID); err != nil {
		return err
	}

	if err := s.pm.RemoveByPostID(ctx, postID); err != nil {
		return fmt.Errorf("error removing post media")
	}
	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}

func (s *postService) ownedPost(ctx context.Context, postID, organizationID int64) (*models.Post, error) {
	if organizationID == 0 {
		err := errors.New("organization is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post == nil || post.OrganizationID != organizationID {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}
