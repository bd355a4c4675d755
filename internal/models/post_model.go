package models

import "time"

type Post struct {
	ID               int64      `db:"id" json:"id"`
	OrganizationID   int64      `db:"organization_id" json:"organization_id"`
	Caption          string     `db:"caption" json:"caption"`
	Status           string     `db:"status" json:"status"` // draft, ready, posted
	ScheduledDate    *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	PublishedMediaID string     `db:"published_media_id" json:"published_media_id,omitempty"`
	PostedAt         *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id" json:"post_id"`
	MediaType    string    `db:"media_type" json:"media_type"` // image, video
	MediaURL     string    `db:"media_url" json:"media_url"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type MediaAsset struct {
	ID             int64     `db:"id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	FileName       string    `db:"file_name" json:"file_name"`
	FileType       string    `db:"file_type" json:"file_type"`
	FileURL        string    `db:"file_url" json:"file_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft  = "draft"
	PostStatusReady  = "ready"
	PostStatusPosted = "posted"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)
