// Package scheduler runs named one-shot jobs that can be cancelled by name.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
)

// ErrStopped is returned when scheduling on a stopped scheduler
var ErrStopped = errors.New("scheduler stopped")

// Func is the body of a job
type Func func(ctx context.Context, job *Job)

type jobState int

const (
	statePending jobState = iota
	stateRunning
	stateDone
	stateCancelled
)

// Job is a scheduled one-shot callback
type Job struct {
	Name    string
	Payload any
	RunAt   time.Time

	id    uint64
	fn    Func
	timer clock.Timer
	state jobState
}

// Scheduler keeps pending jobs indexed by name
type Scheduler struct {
	clock   clock.Clock
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string][]*Job
	nextID  uint64
	running sync.WaitGroup
	stopped bool
}

// New creates a scheduler driven by clk
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:   clk,
		logger:  logger.With("component", "scheduler"),
		pending: make(map[string][]*Job),
	}
}

// RunOnce schedules fn to run once after delay under name
func (s *Scheduler) RunOnce(name string, delay time.Duration, payload any, fn Func) (*Job, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.nextID++
	job := &Job{
		Name:    name,
		Payload: payload,
		RunAt:   s.clock.Now().Add(delay),
		id:      s.nextID,
		fn:      fn,
	}
	s.pending[name] = append(s.pending[name], job)
	s.mu.Unlock()

	// The fake clock runs non-positive delays synchronously, so the lock
	// must not be held here.
	timer := s.clock.AfterFunc(delay, func() { s.fire(job) })

	s.mu.Lock()
	job.timer = timer
	s.mu.Unlock()

	s.logger.Debug("job scheduled", "name", name, "delay", delay)
	return job, nil
}

// CancelByName cancels every pending job with the given name and returns
// how many were cancelled. Jobs that already started are not affected.
func (s *Scheduler) CancelByName(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.pending[name]
	delete(s.pending, name)
	for _, job := range jobs {
		s.cancelLocked(job)
	}
	if len(jobs) > 0 {
		s.logger.Debug("jobs cancelled", "name", name, "count", len(jobs))
	}
	return len(jobs)
}

// JobsByName returns the pending jobs registered under name
func (s *Scheduler) JobsByName(name string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*Job, len(s.pending[name]))
	copy(jobs, s.pending[name])
	return jobs
}

// Stop cancels all pending jobs and waits for running ones to finish or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	cancelled := 0
	for name, jobs := range s.pending {
		for _, job := range jobs {
			s.cancelLocked(job)
			cancelled++
		}
		delete(s.pending, name)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler stopping", "cancelled", cancelled)

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for running jobs: %w", ctx.Err())
	}
}

// cancelLocked marks a pending job cancelled. Caller holds mu.
func (s *Scheduler) cancelLocked(job *Job) {
	if job.state != statePending {
		return
	}
	job.state = stateCancelled
	if job.timer != nil {
		job.timer.Stop()
	}
}

// fire runs a job unless it was cancelled first
func (s *Scheduler) fire(job *Job) {
	s.mu.Lock()
	if job.state != statePending {
		s.mu.Unlock()
		return
	}
	job.state = stateRunning
	s.removeLocked(job)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "name", job.Name, "panic", r, "stack", string(debug.Stack()))
		}
		s.mu.Lock()
		job.state = stateDone
		s.mu.Unlock()
	}()

	s.logger.Info("job fired", "name", job.Name)
	job.fn(context.Background(), job)
}

// removeLocked drops a job from the pending index. Caller holds mu.
func (s *Scheduler) removeLocked(job *Job) {
	jobs := s.pending[job.Name]
	for i, j := range jobs {
		if j.id == job.id {
			jobs = append(jobs[:i], jobs[i+1:]...)
			break
		}
	}
	if len(jobs) == 0 {
		delete(s.pending, job.Name)
		return
	}
	s.pending[job.Name] = jobs
}
