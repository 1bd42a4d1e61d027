package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/statement-converter/internal/jobs"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/dvloznov/statement-converter/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        bool
	}{
		{"content type", "extrato", "application/pdf", true},
		{"extension", "extrato.PDF", "application/octet-stream", true},
		{"neither", "extrato.txt", "text/plain", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPDF(tt.filename, tt.contentType))
		})
	}
}

func TestStatusOf(t *testing.T) {
	status, msg := statusOf(busyOr(pipeline.ErrRunInProgress))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, msgRunInProgress, msg)

	status, _ = statusOf(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestRequestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &requestError{status: http.StatusBadRequest, msg: "m", err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "m: cause", err.Error())
}

// handoffPublisher hands each job to a goroutine that updates it the way a
// queue worker does.
type handoffPublisher struct {
	wg        sync.WaitGroup
	published []*jobs.ProcessJob
}

func (p *handoffPublisher) PublishProcess(ctx context.Context, job *jobs.ProcessJob) error {
	p.published = append(p.published, job)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		job.Status = jobs.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}()
	return nil
}

func (p *handoffPublisher) Close() error { return nil }

func TestStartRun_ReturnsSnapshotTakenBeforePublish(t *testing.T) {
	store := session.NewStore(time.Minute, func() *pipeline.Controller {
		return pipeline.NewController(pipeline.NewPipeline(), nil)
	}, nil)
	sess := store.Create()
	require.NoError(t, sess.Controller.SelectFile("extrato.pdf", []byte("%PDF")))

	pub := &handoffPublisher{}
	conv := NewConverter(store, pub, nil, nil, 1024)

	queued, err := conv.startRun(context.Background(), sess)
	require.NoError(t, err)
	pub.wg.Wait()

	require.Len(t, pub.published, 1)
	assert.NotSame(t, pub.published[0], queued)
	assert.Equal(t, jobs.JobStatusPending, queued.Status)
	assert.Nil(t, queued.StartedAt)
	assert.Equal(t, sess.ID, queued.SessionID)
	assert.NotEmpty(t, queued.JobID)
	assert.Equal(t, pub.published[0].JobID, queued.JobID)
	assert.Equal(t, pub.published[0].RunID, queued.RunID)
}
