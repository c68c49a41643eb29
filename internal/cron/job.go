package cron

import (
	"maps"
	"slices"
	"time"
)

// Job runs a list of agent actions on a cron schedule.
type Job struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Schedule  string            `json:"schedule"` // six fields, seconds first
	Actions   []string          `json:"actions"`  // run in this order
	Params    map[string]string `json:"params,omitempty"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"created_at"`
	LastRun   time.Time         `json:"last_run,omitzero"`
	LastError string            `json:"last_error,omitempty"`

	// Scheduled reports whether the job currently has a cron entry. It is
	// filled in by Scheduler.ListJobs and never stored.
	Scheduled bool `json:"-"`
}

// Clone returns a copy that shares no slices or maps with j.
func (j Job) Clone() Job {
	j.Actions = slices.Clone(j.Actions)
	j.Params = maps.Clone(j.Params)
	return j
}
