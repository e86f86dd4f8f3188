package pagestore

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskScheduler fans a batch of independent tasks out across goroutines and
// waits for all of them to finish, bounded by the Go runtime's scheduler.
// It stands in for the "task scheduler" external collaborator spec.md
// treats as a stated contract; unzipCluster is its only caller. Tasks
// submitted to one Reset/Wait cycle must operate on disjoint pages: the
// scheduler makes no ordering guarantee between them.
type TaskScheduler struct {
	mu    sync.Mutex
	tasks []func() error
}

// NewTaskScheduler returns an empty TaskScheduler.
func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{}
}

// Reset discards any tasks left over from a prior Wait.
func (s *TaskScheduler) Reset() {
	s.mu.Lock()
	s.tasks = s.tasks[:0]
	s.mu.Unlock()
}

// AddTask enqueues a task to run on the next Wait.
func (s *TaskScheduler) AddTask(fn func() error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, fn)
	s.mu.Unlock()
}

// Wait runs every queued task concurrently and blocks until all have
// returned, returning the first error encountered (if any).
func (s *TaskScheduler) Wait() error {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	var g errgroup.Group
	for _, task := range tasks {
		task := task
		g.Go(task)
	}
	return g.Wait()
}
