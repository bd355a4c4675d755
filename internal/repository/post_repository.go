package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/glevi2004/organically-sub001/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByOrganizationID(ctx context.Context, organizationID int64) ([]*models.Post, error)
	CheckByOrganizationID(ctx context.Context, postID, organizationID int64) (bool, error)
	SetSchedule(ctx context.Context, postID int64, scheduledDate time.Time) error
	ClearSchedule(ctx context.Context, postID int64) error
	MarkPosted(ctx context.Context, postID int64, publishedMediaID string, postedAt time.Time, expectedStatus string) (bool, error)
	ListDueScheduled(ctx context.Context, since, until time.Time) ([]*models.Post, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (organization_id, caption, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.OrganizationID, post.Caption, post.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.OrganizationID, post.Caption, post.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT id, organization_id, caption, status, scheduled_date,
			COALESCE(published_media_id, ''), posted_at, created_at, updated_at
		FROM posts WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	err := row.Scan(&post.ID, &post.OrganizationID, &post.Caption, &post.Status,
		&post.ScheduledDate, &post.PublishedMediaID, &post.PostedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) GetByOrganizationID(ctx context.Context, organizationID int64) ([]*models.Post, error) {
	query := `
		SELECT id, organization_id, caption, status, scheduled_date,
			COALESCE(published_media_id, ''), posted_at, created_at, updated_at
		FROM posts WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.OrganizationID, &post.Caption, &post.Status,
			&post.ScheduledDate, &post.PublishedMediaID, &post.PostedAt, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByOrganizationID(ctx context.Context, postID, organizationID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND organization_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, organizationID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) SetSchedule(ctx context.Context, postID int64, scheduledDate time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_date = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusReady, scheduledDate, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ClearSchedule(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_date = NULL,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusDraft, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPosted flips a post to posted only while its status still matches
// expectedStatus. The conditional update is what keeps two overlapping job
// deliveries from both publishing: the loser sees zero rows affected.
func (r *postRepository) MarkPosted(ctx context.Context, postID int64, publishedMediaID string, postedAt time.Time, expectedStatus string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			published_media_id = $2,
			posted_at = $3,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPosted, publishedMediaID, postedAt, postID, expectedStatus)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *postRepository) ListDueScheduled(ctx context.Context, since, until time.Time) ([]*models.Post, error) {
	query := `
		SELECT id, organization_id, caption, status, scheduled_date,
			COALESCE(published_media_id, ''), posted_at, created_at, updated_at
		FROM posts
		WHERE status = $1 AND scheduled_date IS NOT NULL
			AND scheduled_date BETWEEN $2 AND $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusReady, since, until)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.OrganizationID, &post.Caption, &post.Status,
			&post.ScheduledDate, &post.PublishedMediaID, &post.PostedAt, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
