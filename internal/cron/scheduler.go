// Package cron runs agent actions on cron schedules.
package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kayz/promptforge/internal/agent"
	"github.com/kayz/promptforge/internal/config"
	"github.com/kayz/promptforge/internal/logger"
)

// DefaultJobTimeout bounds one execution of a job.
const DefaultJobTimeout = 5 * time.Minute

// ErrJobNotFound is returned for operations on an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ActionRunner runs a single agent action.
type ActionRunner interface {
	RunOne(ctx context.Context, key string, params agent.Params) (any, error)
}

type entry struct {
	job Job
	id  cron.EntryID // 0 while unscheduled
}

// Scheduler fires stored jobs through an ActionRunner.
type Scheduler struct {
	cron    *cron.Cron
	store   *Store
	runner  ActionRunner
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*entry // by job ID
}

func NewScheduler(store *Store, runner ActionRunner) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(cronParser)),
		store:   store,
		runner:  runner,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]*entry),
	}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// normalizeCron turns a standard 5-field expression into the 6-field form
// by firing at second zero.
func normalizeCron(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// ValidateSchedule reports whether schedule is a 5- or 6-field cron
// expression or a descriptor such as @hourly.
func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(normalizeCron(schedule)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// Start schedules every enabled stored job and starts firing.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, job := range jobs {
		if _, loaded := s.jobs[job.ID]; loaded {
			continue
		}
		e := &entry{job: job}
		s.jobs[job.ID] = e
		if job.Enabled {
			if err := s.schedule(e); err != nil {
				logger.Warn("[CRON] Cannot schedule %s: %v", job.Name, err)
			}
		}
	}
	total, active := len(s.jobs), s.countScheduled()
	s.mu.Unlock()

	s.cron.Start()
	logger.Info("[CRON] Scheduler started: %d jobs, %d active", total, active)
	return nil
}

// Stop waits for running jobs to finish, then closes the store.
func (s *Scheduler) Stop() error {
	<-s.cron.Stop().Done()
	logger.Info("[CRON] Scheduler stopped")
	return s.store.Close()
}

// AddJob stores and schedules a new enabled job.
func (s *Scheduler) AddJob(ctx context.Context, name, schedule string, actions []string, params map[string]string) (Job, error) {
	job, err := newJob(name, schedule, actions, params)
	if err != nil {
		return Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.jobs {
		if e.job.Name == job.Name {
			return Job{}, fmt.Errorf("job %s already exists", job.Name)
		}
	}
	if err := s.store.Put(ctx, job); err != nil {
		return Job{}, err
	}
	e := &entry{job: job}
	if err := s.schedule(e); err != nil {
		s.store.Delete(ctx, job.ID)
		return Job{}, err
	}
	s.jobs[job.ID] = e

	logger.Info("[CRON] Added %s (%s): %s", job.Name, job.Schedule, strings.Join(job.Actions, ","))
	return job.Clone(), nil
}

func newJob(name, schedule string, actions []string, params map[string]string) (Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Job{}, fmt.Errorf("job name is required")
	}
	if len(actions) == 0 {
		return Job{}, fmt.Errorf("job %s has no actions", name)
	}
	if err := ValidateSchedule(schedule); err != nil {
		return Job{}, fmt.Errorf("job %s: %w", name, err)
	}
	return Job{
		ID:        uuid.NewString(),
		Name:      name,
		Schedule:  normalizeCron(schedule),
		Actions:   slices.Clone(actions),
		Params:    params,
		Enabled:   true,
		CreatedAt: time.Now(),
	}, nil
}

// Sync makes the stored jobs match schedules. Known names are updated in
// place so they keep their ID and run history, new names are added and
// stored jobs without a valid configured entry are deleted. Invalid entries
// are reported together. Call Sync before Start.
func (s *Scheduler) Sync(ctx context.Context, schedules []config.ScheduleConfig) error {
	stored, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]Job, len(stored))
	for _, job := range stored {
		byName[job.Name] = job
	}

	var errs []error
	seen := make(map[string]bool, len(schedules))
	configured := make(map[string]bool, len(schedules))
	for _, sc := range schedules {
		name := strings.TrimSpace(sc.Name)
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate schedule name %q", name))
			continue
		}
		seen[name] = true

		job, err := newJob(name, sc.Schedule, sc.Actions, sc.Params)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		configured[name] = true
		if prev, ok := byName[name]; ok {
			job.ID, job.CreatedAt = prev.ID, prev.CreatedAt
		}
		job.Enabled = !sc.Disabled
		if err := s.store.Put(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}

	for name, job := range byName {
		if configured[name] {
			continue
		}
		if err := s.store.Delete(ctx, job.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete job %s: %w", name, err))
			continue
		}
		logger.Info("[CRON] Removed unconfigured job %s", name)
	}
	return errors.Join(errs...)
}

// RemoveJob unschedules and deletes a job.
func (s *Scheduler) RemoveJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job %s: %w", e.job.Name, err)
	}
	s.unschedule(e)
	delete(s.jobs, id)
	logger.Info("[CRON] Removed %s", e.job.Name)
	return nil
}

// PauseJob stops a job from firing until it is resumed.
func (s *Scheduler) PauseJob(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

// ResumeJob reschedules a paused job.
func (s *Scheduler) ResumeJob(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

func (s *Scheduler) setEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if e.job.Enabled == enabled {
		if enabled {
			return fmt.Errorf("job %s is not paused", e.job.Name)
		}
		return fmt.Errorf("job %s is already paused", e.job.Name)
	}

	if enabled {
		if err := s.schedule(e); err != nil {
			return err
		}
	} else {
		s.unschedule(e)
	}
	if err := s.store.SetEnabled(ctx, id, enabled); err != nil {
		logger.Warn("[CRON] Cannot persist state of %s: %v", e.job.Name, err)
	}
	e.job.Enabled = enabled

	state := "paused"
	if enabled {
		state = "resumed"
	}
	logger.Info("[CRON] Job %s %s", e.job.Name, state)
	return nil
}

// ListJobs returns copies of the loaded jobs sorted by name.
func (s *Scheduler) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		job := e.job.Clone()
		job.Scheduled = e.id != 0
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b Job) int { return strings.Compare(a.Name, b.Name) })
	return jobs
}

// schedule and unschedule require s.mu.
func (s *Scheduler) schedule(e *entry) error {
	id := e.job.ID
	entryID, err := s.cron.AddFunc(e.job.Schedule, func() { s.run(id) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", e.job.Name, err)
	}
	e.id = entryID
	return nil
}

func (s *Scheduler) unschedule(e *entry) {
	if e.id != 0 {
		s.cron.Remove(e.id)
		e.id = 0
	}
}

func (s *Scheduler) countScheduled() int {
	n := 0
	for _, e := range s.jobs {
		if e.id != 0 {
			n++
		}
	}
	return n
}

// run executes the job's actions in order. A failing action does not stop
// the ones after it; every failure ends up in LastError.
func (s *Scheduler) run(id string) {
	s.mu.Lock()
	e, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	job := e.job.Clone()
	s.mu.Unlock()

	started := time.Now()
	logger.Info("[CRON] Running %s: %s", job.Name, strings.Join(job.Actions, ","))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	runErr := s.runActions(ctx, job)
	if runErr != nil {
		logger.Warn("[CRON] Job %s failed: %v", job.Name, runErr)
	} else {
		logger.Info("[CRON] Job %s done in %s", job.Name, time.Since(started).Round(time.Millisecond))
	}

	s.mu.Lock()
	if e, ok := s.jobs[id]; ok {
		e.job.LastRun = started
		e.job.LastError = ""
		if runErr != nil {
			e.job.LastError = runErr.Error()
		}
	}
	s.mu.Unlock()

	if err := s.store.RecordResult(context.Background(), id, started, runErr); err != nil {
		logger.Warn("[CRON] Cannot record result of %s: %v", job.Name, err)
	}
}

func (s *Scheduler) runActions(ctx context.Context, job Job) error {
	if s.runner == nil {
		return fmt.Errorf("no action runner")
	}
	params := make(agent.Params, len(job.Params))
	for k, v := range job.Params {
		params[k] = v
	}

	var errs []error
	for _, key := range job.Actions {
		if _, err := s.runner.RunOne(ctx, key, params); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
