package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/statement-converter/internal/jobs"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/google/uuid"
)

// DefaultWorkerCount is used when NewQueue is given no worker count.
const DefaultWorkerCount = 4

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Each job runs once; there is no retry.
type Queue struct {
	jobChan     chan *jobs.ProcessJob
	closeChan   chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	workerCount int
	closed      bool
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can wait before PublishProcess
// starts rejecting them with jobs.ErrQueueFull.
func NewQueue(bufferSize, workerCount int) *Queue {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Queue{
		jobChan:     make(chan *jobs.ProcessJob, bufferSize),
		closeChan:   make(chan struct{}),
		workerCount: workerCount,
	}
}

// PublishProcess implements the Publisher interface.
func (q *Queue) PublishProcess(ctx context.Context, job *jobs.ProcessJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if job.Run == nil {
		return fmt.Errorf("publish job: no run attached")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.RunID == "" {
		job.RunID = job.Run.ID()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return jobs.ErrQueueFull
	}
}

// Start implements the Consumer interface.
// The handler is called concurrently, up to workerCount jobs at a time.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job.
func (q *Queue) processJob(ctx context.Context, job *jobs.ProcessJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("session_id", job.SessionID).
		Str("run_id", job.RunID).
		Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	err := q.safeHandle(ctx, job, handler)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Warn().Err(err).Dur("duration", completedAt.Sub(now)).Msg("Job failed")
		return
	}

	job.Status = jobs.JobStatusCompleted
	job.Error = ""
	log.Debug().Dur("duration", completedAt.Sub(now)).Msg("Job completed")
}

func (q *Queue) safeHandle(ctx context.Context, job *jobs.ProcessJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
