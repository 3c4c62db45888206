package syncclient

import "context"

// Job runs SyncAll on a worker pool or scheduler
type Job struct {
	client *Client
}

// NewJob wraps the client as a worker.Job
func NewJob(client *Client) *Job {
	return &Job{client: client}
}

// Process pushes every pending collection
func (j *Job) Process(ctx context.Context) error {
	_, err := j.client.SyncAll(ctx)
	return err
}
