package jobs

import (
	"context"
	"fmt"
)

// ExecuteRun is the JobHandler that runs the job's claimed pipeline run.
// A panic inside the run is turned into a failed run so the session does
// not stay busy.
func ExecuteRun(ctx context.Context, job *ProcessJob) (err error) {
	if job.Run == nil {
		return fmt.Errorf("job %s: no run attached", job.JobID)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run %s panicked: %v", job.RunID, r)
			job.Run.Abort(err)
		}
	}()

	return job.Run.Execute(ctx)
}
