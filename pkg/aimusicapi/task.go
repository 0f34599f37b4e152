package aimusicapi

import "time"

// Status is the lifecycle state of a remote generation task. Transitions
// are server-driven; this client only observes them.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Metadata describes a generated clip.
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	Style       string   `json:"style,omitempty"`
	Description string   `json:"description,omitempty"`
	Lyrics      string   `json:"lyrics,omitempty"`
	Model       string   `json:"model,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Clip is one generated piece of music.
type Clip struct {
	ID       string   `json:"clip_id"`
	AudioURL string   `json:"audio_url"`
	VideoURL string   `json:"video_url,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
	Status   Status   `json:"status,omitempty"`
}

// Task is one remote generation job as observed via polling or webhook.
// Clips and Error are mutually exclusive and only present once the
// status is terminal. A terminal Task is never mutated.
type Task struct {
	TaskID        string     `json:"task_id"`
	Status        Status     `json:"status"`
	Message       string     `json:"message,omitempty"`
	EstimatedTime int        `json:"estimated_time,omitempty"`
	Clips         []Clip     `json:"clips,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Credits is a read-only balance snapshot.
type Credits struct {
	Credits      int        `json:"credits"`
	ExtraCredits int        `json:"extra_credits"`
	ResetDate    *time.Time `json:"reset_date,omitempty"`
}
