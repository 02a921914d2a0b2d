// internal/models/job.go
package models

import "time"

// JobStatus 异步任务状态
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobReady      JobStatus = "ready"
	JobFailed     JobStatus = "failed"
)

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == JobReady || s == JobFailed
}

// JobSnapshot 对外暴露的任务状态
type JobSnapshot struct {
	ID        string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
