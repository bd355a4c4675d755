package models

import "time"

// PublishHistory records the outcome of every publish attempt so that failed
// scheduled jobs stay visible to operators.
type PublishHistory struct {
	ID             int64     `db:"id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	ChannelID      int64     `db:"channel_id" json:"channel_id"`
	Trigger        string    `db:"trigger_type" json:"trigger"` // scheduled, manual
	Outcome        string    `db:"outcome" json:"outcome"` // published, skipped, failed
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	PublishTriggerScheduled = "scheduled"
	PublishTriggerManual    = "manual"
)

const (
	PublishOutcomePublished = "published"
	PublishOutcomeSkipped   = "skipped"
	PublishOutcomeFailed    = "failed"
)
