package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the render job lifecycle states.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// RenderJob is one execution of the bundle → select → render sequence for
// one ResolvedTimeline. Jobs are created per export request and live only
// for the duration of that request; they are never shared across requests.
type RenderJob struct {
	ID             string
	Timeline       ResolvedTimeline
	OutputFileName string
	OutputPath     string // web-servable path, set on success
	Status         JobStatus
	Error          string
	CreatedAt      time.Time
	FinishedAt     time.Time
}

// NewRenderJob creates a pending job for the given resolved timeline.
func NewRenderJob(rt ResolvedTimeline) *RenderJob {
	return &RenderJob{
		ID:        uuid.NewString(),
		Timeline:  rt,
		Status:    JobPending,
		CreatedAt: time.Now(),
	}
}

// Start marks the job running.
func (j *RenderJob) Start() {
	j.Status = JobRunning
}

// Succeed marks the job done with its output path.
func (j *RenderJob) Succeed(fileName, webPath string) {
	j.OutputFileName = fileName
	j.OutputPath = webPath
	j.Status = JobSucceeded
	j.FinishedAt = time.Now()
}

// Fail marks the job failed with a human-readable cause.
func (j *RenderJob) Fail(detail string) {
	j.Status = JobFailed
	j.Error = detail
	j.FinishedAt = time.Now()
}
