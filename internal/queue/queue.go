package queue

import "time"

const TaskTypePublishScheduled = "publish:scheduled"

// PublishPayload is the schedule job stamp: a job fired with ScheduledAt S is
// only valid while the post's current scheduled date still equals S. A
// reschedule makes the older delivery a no-op without any cancellation
// machinery.
type PublishPayload struct {
	PostID         int64     `json:"post_id"`
	OrganizationID int64     `json:"organization_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}
