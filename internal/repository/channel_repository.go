package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/glevi2004/organically-sub001/internal/models"
)

type ChannelRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	GetActiveChannel(ctx context.Context, organizationID int64, platform string) (*models.Channel, error)
	ListByOrganizationID(ctx context.Context, organizationID int64) ([]*models.Channel, error)
}

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	query := `
		SELECT id, organization_id, platform, account_id, account_name,
			access_token, token_expires_at, is_active, created_at, updated_at
		FROM channels WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.OrganizationID, &ch.Platform, &ch.AccountID, &ch.AccountName,
		&ch.AccessToken, &ch.TokenExpiresAt, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ch, nil
}

func (r *channelRepository) GetActiveChannel(ctx context.Context, organizationID int64, platform string) (*models.Channel, error) {
	query := `
		SELECT id, organization_id, platform, account_id, account_name,
			access_token, token_expires_at, is_active, created_at, updated_at
		FROM channels
		WHERE organization_id = $1 AND platform = $2 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, organizationID, platform)

	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.OrganizationID, &ch.Platform, &ch.AccountID, &ch.AccountName,
		&ch.AccessToken, &ch.TokenExpiresAt, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ch, nil
}

func (r *channelRepository) ListByOrganizationID(ctx context.Context, organizationID int64) ([]*models.Channel, error) {
	query := `
		SELECT id, organization_id, platform, account_id, account_name,
			access_token, token_expires_at, is_active, created_at, updated_at
		FROM channels WHERE organization_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		var ch models.Channel
		err := rows.Scan(&ch.ID, &ch.OrganizationID, &ch.Platform, &ch.AccountID, &ch.AccountName,
			&ch.AccessToken, &ch.TokenExpiresAt, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}
