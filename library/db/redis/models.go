package redis

import "time"

// FileRemovalTask asks the worker to delete a stored file
type FileRemovalTask struct {
	TaskID string `json:"task_id"`
	FileID string `json:"file_id"`
	// WithPreviews also deletes every `<file_id>_<size>` object
	WithPreviews bool      `json:"with_previews"`
	CreatedAt    time.Time `json:"created_at"`
}
