package domain

import "time"

// TaskStatus enumerates background video task lifecycle states.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// TaskRecord tracks one background video generation task. Records transition
// monotonically from generating to exactly one terminal status; once terminal
// they are never polled again.
type TaskRecord struct {
	ID           string
	TaskID       string
	Provider     string
	Prompt       string
	ImageURL     string
	Status       TaskStatus
	ResultURL    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
