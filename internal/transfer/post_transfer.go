package transfer

type MediaItem struct {
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
}

type PostCreation struct {
	Caption string      `json:"caption"`
	Media   []MediaItem `json:"media"`
}

type ScheduleRequest struct {
	PostID        int64  `json:"post_id"`
	ScheduledDate string `json:"scheduled_date"`
}

// JobResult is what both publish entry points report back: the asynchronous
// scheduled path logs it, the synchronous publish-now path returns it to the
// caller.
type JobResult struct {
	Success          bool   `json:"success"`
	Skipped          bool   `json:"skipped"`
	PublishedMediaID string `json:"published_media_id,omitempty"`
	Message          string `json:"message,omitempty"`
}
