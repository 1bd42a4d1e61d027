package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/statement-converter/internal/pipeline"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

var (
	// ErrQueueClosed is returned when publishing to a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrQueueFull is returned when the queue buffer has no room.
	ErrQueueFull = errors.New("queue is full")
)

// ProcessJob represents one conversion run waiting to execute.
type ProcessJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// SessionID is the session the run belongs to.
	SessionID string `json:"session_id"`

	// RunID is the pipeline run identifier.
	RunID string `json:"run_id"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Run is the claimed pipeline run. It is executed exactly once.
	Run *pipeline.Run `json:"-"`
}

// Publisher enqueues conversion runs.
type Publisher interface {
	// PublishProcess enqueues a run. It never blocks on a full queue.
	PublishProcess(ctx context.Context, job *ProcessJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer executes queued runs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. Failed jobs are not retried.
type JobHandler func(ctx context.Context, job *ProcessJob) error
