// Package scheduler runs deferred client work on a gocron scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobInfo contains information about a scheduled job.
type JobInfo struct {
	ID         string
	Name       string
	Status     JobStatus
	RunAt      time.Time
	LastRun    time.Time
	RunCount   int
	ErrorCount int
	LastError  string
	GocronJob  gocron.Job
}

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// Scheduler manages one-shot jobs keyed by id.
// Scheduling a job under an id that is already pending replaces it.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*JobInfo
}

// New creates a new scheduler and starts it.
func New() (*Scheduler, error) {
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(jobLogger{log.Default().WithPrefix("scheduler")}))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		gocron: gocronScheduler,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*JobInfo),
	}
	s.gocron.Start()
	log.Debug("Job scheduler started")
	return s, nil
}

// Stop cancels running jobs and stops the scheduler.
func (s *Scheduler) Stop() error {
	log.Debug("Stopping job scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// ScheduleOnce runs jobFunc once after delay. A pending job with the same id is cancelled.
func (s *Scheduler) ScheduleOnce(id, name string, delay time.Duration, jobFunc JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, exists := s.jobs[id]; exists {
		s.removeLocked(prev)
	}

	start := gocron.OneTimeJobStartImmediately()
	runAt := time.Now()
	if delay > 0 {
		runAt = runAt.Add(delay)
		start = gocron.OneTimeJobStartDateTime(runAt)
	}

	jobInfo := &JobInfo{
		ID:     id,
		Name:   name,
		Status: JobStatusScheduled,
		RunAt:  runAt,
	}

	job, err := s.gocron.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(s.wrapJobFunc(jobInfo, jobFunc)),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	jobInfo.GocronJob = job

	s.jobs[id] = jobInfo
	log.Debug("Scheduled job", "id", id, "name", name, "delay", delay)
	return nil
}

// Cancel removes the pending job with the given id.
// It reports whether a job was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobInfo, exists := s.jobs[id]
	if !exists || jobInfo.Status != JobStatusScheduled {
		return false
	}
	s.removeLocked(jobInfo)
	return true
}

func (s *Scheduler) removeLocked(jobInfo *JobInfo) {
	if jobInfo.Status == JobStatusScheduled {
		jobInfo.Status = JobStatusCancelled
	}
	if jobInfo.GocronJob == nil {
		return
	}
	if err := s.gocron.RemoveJob(jobInfo.GocronJob.ID()); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		log.Warn("Failed to remove job", "id", jobInfo.ID, "error", err)
	}
}

// GetJob returns a copy of the information about a specific job.
func (s *Scheduler) GetJob(id string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return JobInfo{}, false
	}
	return *job, true
}

// wrapJobFunc wraps a job function to update job statistics.
func (s *Scheduler) wrapJobFunc(jobInfo *JobInfo, jobFunc JobFunc) func() {
	return func() {
		s.mu.Lock()
		if jobInfo.Status == JobStatusCancelled {
			s.mu.Unlock()
			log.Debug("Job was cancelled, skipping", "id", jobInfo.ID)
			return
		}
		jobInfo.Status = JobStatusRunning
		jobInfo.LastRun = time.Now()
		jobInfo.RunCount++
		s.mu.Unlock()

		log.Debug("Starting job", "id", jobInfo.ID, "name", jobInfo.Name)
		err := jobFunc(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			log.Debug("Job failed", "id", jobInfo.ID, "name", jobInfo.Name, "error", err)
			jobInfo.Status = JobStatusFailed
			jobInfo.ErrorCount++
			jobInfo.LastError = err.Error()
			return
		}
		jobInfo.Status = JobStatusCompleted
		jobInfo.LastError = ""
	}
}

// jobLogger routes gocron output to charm log. gocron reports every
// scheduler lifecycle step at info, which a one-shot CLI demotes to debug.
type jobLogger struct {
	l *log.Logger
}

func (j jobLogger) Debug(msg string, args ...any) { j.l.Debug(msg, args...) }
func (j jobLogger) Info(msg string, args ...any)  { j.l.Debug(msg, args...) }
func (j jobLogger) Warn(msg string, args ...any)  { j.l.Warn(msg, args...) }
func (j jobLogger) Error(msg string, args ...any) { j.l.Error(msg, args...) }
