package workers

import "github.com/hibiken/asynq"

// Enqueuer is the subset of *asynq.Client used to schedule tasks
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
